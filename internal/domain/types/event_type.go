package types

import "fmt"

// EventKind is the kind of a change feed notification
type EventKind string

func (k EventKind) String() string {
	return string(k)
}

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
)

func (k EventKind) Valid() bool {
	return k == EventCreated || k == EventUpdated
}

func (k *EventKind) UnmarshalText(b []byte) error {
	v := EventKind(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEvent, string(b))
	}
	*k = v
	return nil
}

// CommandKind is the kind of a locally issued command
type CommandKind string

func (k CommandKind) String() string {
	return string(k)
}

const (
	CommandCreate  CommandKind = "create"
	CommandAccept  CommandKind = "accept"
	CommandAdvance CommandKind = "advance"
)
