package gba

import (
	"errors"
	"fmt"
)

var ErrDeviceDisconnected = errors.New("device disconnected")

type TerminalError struct {
	wrapped error
}

func NewTerminalError(err error) *TerminalError { return &TerminalError{wrapped: err} }

func (e *TerminalError) Unwrap() error { return e.wrapped }
func (e *TerminalError) Error() string {
	if e.wrapped == nil {
		return "gba device terminal error"
	}
	return fmt.Sprintf("gba device terminal error: %v", e.wrapped)
}

// Is reports every terminal error as a disconnection.
func (e *TerminalError) Is(target error) bool {
	return target == ErrDeviceDisconnected
}
