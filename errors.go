package termblock

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer     = errors.New("buffer shorter than header declares")
	ErrLengthMismatch  = errors.New("buffer length does not match term count")
	ErrIndexOutOfRange = errors.New("term index out of range")
	ErrTooManyTerms    = errors.New("term count exceeds header width")
)

// IndexError is the panic value raised when a term index falls outside the
// block. Accessors panic rather than return an error: the caller is expected
// to iterate within Len().
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("term index %d out of range [0,%d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// CheckIndex panics with *IndexError unless 0 <= i < n.
func CheckIndex(i, n int) {
	if uint(i) >= uint(n) {
		panic(&IndexError{Index: i, Len: n})
	}
}
