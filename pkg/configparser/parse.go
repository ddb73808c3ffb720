package configparser

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotStructPointer = errors.New("config must be a pointer to a struct")
	ErrRequired         = errors.New("required variable is not set")
)

var durationType = reflect.TypeOf(time.Duration(0))

// FieldError reports the struct field and variable that failed to parse.
type FieldError struct {
	Field string
	Env   string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config field %s (%s): %v", e.Field, e.Env, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ParseEnv fills the struct pointed to by cfg from the environment.
//
// Supported tags:
//
//	env:"NAME"        variable to read
//	default:"value"   used when the variable is empty
//	required:"true"   fail when both are empty
//
// Nested structs are walked. All field errors are returned joined.
func ParseEnv(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}

	var errs []error
	parseStruct(v.Elem(), "", &errs)
	return errors.Join(errs...)
}

func parseStruct(v reflect.Value, prefix string, errs *[]error) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)
		path := prefix + field.Name

		if fv.Kind() == reflect.Struct && fv.Type() != durationType {
			parseStruct(fv, path+".", errs)
			continue
		}

		name, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}

		raw := os.Getenv(name)
		if raw == "" {
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			if field.Tag.Get("required") == "true" {
				*errs = append(*errs, &FieldError{Field: path, Env: name, Err: ErrRequired})
			}
			continue
		}

		if err := setValue(fv, raw); err != nil {
			*errs = append(*errs, &FieldError{Field: path, Env: name, Err: err})
		}
	}
}

func setValue(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", fv.Type().Elem().Kind())
		}
		parts := strings.Split(raw, ",")
		out := reflect.MakeSlice(fv.Type(), 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = reflect.Append(out, reflect.ValueOf(p).Convert(fv.Type().Elem()))
			}
		}
		fv.Set(out)
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}
