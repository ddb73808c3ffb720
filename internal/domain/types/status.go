package types

import "fmt"

// RideStatus is the lifecycle state of a ride.
// pending -> accepted -> in_progress -> completed, nothing else.
type RideStatus string

const (
	StatusPending    RideStatus = "pending"
	StatusAccepted   RideStatus = "accepted"
	StatusInProgress RideStatus = "in_progress"
	StatusCompleted  RideStatus = "completed"
)

var statusRank = map[RideStatus]int{
	StatusPending:    0,
	StatusAccepted:   1,
	StatusInProgress: 2,
	StatusCompleted:  3,
}

func (s RideStatus) String() string {
	return string(s)
}

func (s RideStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank is the position of s in the lifecycle, -1 for unknown statuses.
func (s RideStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Next returns the only legal successor of s.
func (s RideStatus) Next() (RideStatus, bool) {
	switch s {
	case StatusPending:
		return StatusAccepted, true
	case StatusAccepted:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusCompleted, true
	default:
		return "", false
	}
}

// IsActive reports whether a ride in status s occupies its driver.
func (s RideStatus) IsActive() bool {
	return s == StatusAccepted || s == StatusInProgress
}

// CanTransition reports whether from -> to is a single forward step.
func CanTransition(from, to RideStatus) bool {
	next, ok := from.Next()
	return ok && next == to
}

func (s *RideStatus) UnmarshalText(b []byte) error {
	v := RideStatus(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(b))
	}
	*s = v
	return nil
}

func (s RideStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// ActiveStatuses are the statuses of a driver's active ride
var ActiveStatuses = []RideStatus{StatusAccepted, StatusInProgress}
