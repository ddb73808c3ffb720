package validator

import (
	"fmt"
	"sort"
	"strings"
)

const (
	msgLatitude  = "must be between -90 and 90"
	msgLongitude = "must be between -180 and 180"
)

// Validator collects field errors for request validation
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid returns true if no errors were collected
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError adds an error for key unless one is already present
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check adds an error for key if ok is false
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// CheckLatitude and CheckLongitude record an out of range coordinate under key.
func (v *Validator) CheckLatitude(lat float64, key string) {
	v.Check(Latitude(lat), key, msgLatitude)
}

func (v *Validator) CheckLongitude(lng float64, key string) {
	v.Check(Longitude(lng), key, msgLongitude)
}

// String renders the collected errors sorted by key, for logs.
func (v *Validator) String() string {
	keys := make([]string, 0, len(v.Errors))
	for k := range v.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Errors[k]))
	}
	return strings.Join(parts, "; ")
}

// Latitude reports whether lat is a valid latitude in degrees
func Latitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// Longitude reports whether lng is a valid longitude in degrees
func Longitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
