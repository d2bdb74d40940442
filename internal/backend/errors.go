package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOption is matched by every OptionError.
	ErrInvalidOption = errors.New("invalid app option")
	// ErrAppDeleted is returned by operations on an App after Delete.
	ErrAppDeleted = errors.New("app has been deleted")
)

// OptionError reports a record field whose value the backend rejects.
type OptionError struct {
	Field  string
	Reason string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *OptionError) Is(target error) bool {
	return target == ErrInvalidOption
}
