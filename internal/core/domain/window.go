package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidWindow is returned when a window starts after it ends.
var ErrInvalidWindow = errors.New("invalid query window")

// QueryWindow is a closed time range in unix seconds, padded by Buffer on
// both ends when fetching.
type QueryWindow struct {
	Start  int64
	End    int64
	Buffer int64
}

// NewQueryWindow builds and validates a window.
func NewQueryWindow(start, end, buffer int64) (QueryWindow, error) {
	w := QueryWindow{Start: start, End: end, Buffer: buffer}
	if err := w.Validate(); err != nil {
		return QueryWindow{}, err
	}
	return w, nil
}

// Validate checks Start <= End and a non-negative buffer.
func (w QueryWindow) Validate() error {
	if w.Start > w.End {
		return fmt.Errorf("%w: start %d is after end %d", ErrInvalidWindow, w.Start, w.End)
	}
	if w.Buffer < 0 {
		return fmt.Errorf("%w: negative buffer %d", ErrInvalidWindow, w.Buffer)
	}
	return nil
}

func (w QueryWindow) PaddedStart() int64 {
	return w.Start - w.Buffer
}

func (w QueryWindow) PaddedEnd() int64 {
	return w.End + w.Buffer
}
