package save

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoSave is returned when no backup memory was detected. It is final; detecting again will not
// change the result.
var ErrNoSave = errors.New("save: no save memory detected")

// ErrTimeout matches every *TimeoutError.
var ErrTimeout = errors.New("save: timed out")

// TimeoutError indicates that the hardware never signalled completion of an operation.
type TimeoutError struct {
	Op         string
	Iterations int
	Elapsed    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("save: %s did not complete after %d polls (%v)", e.Op, e.Iterations, e.Elapsed)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// SizeError indicates that a buffer does not match the capacity of the technology it was used with.
type SizeError struct {
	Kind Kind
	Want int
	Got  int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("save: %v needs a %d byte buffer, got %d", e.Kind, e.Want, e.Got)
}

// RangeError indicates an EEPROM block offset outside the chip's address range.
type RangeError struct {
	Kind   Kind
	Offset int
	Blocks int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("save: %v block %d out of range 0-%d", e.Kind, e.Offset, e.Blocks-1)
}
