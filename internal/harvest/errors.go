package harvest

import (
	"errors"
	"fmt"
)

// ErrDropped matches every validation drop.
var ErrDropped = errors.New("record dropped")

// MissingFieldError reports the first empty field of a rejected record.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing %s", e.Field)
}

// Is lets errors.Is(err, ErrDropped) identify drops.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrDropped
}

// ExtractionShapeError reports a container without the expected link element.
type ExtractionShapeError struct {
	Index    int
	Selector string
}

func (e *ExtractionShapeError) Error() string {
	return fmt.Sprintf("container %d has no element matching %q", e.Index, e.Selector)
}

// StorageConnectionError reports a store that could not be reached at startup.
type StorageConnectionError struct {
	Backend string
	Addr    string
	Err     error
}

func (e *StorageConnectionError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("connect %s: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("connect %s at %s: %v", e.Backend, e.Addr, e.Err)
}

func (e *StorageConnectionError) Unwrap() error {
	return e.Err
}
