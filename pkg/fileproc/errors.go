package fileproc

import (
	"errors"
	"fmt"
)

// ErrIO matches every *IOError, so callers can separate file problems from
// cipher and padding failures with errors.Is.
var ErrIO = errors.New("i/o error")

// IOError reports a failed file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
