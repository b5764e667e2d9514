package llm

import (
	"errors"
	"strings"
)

// FragmentStream is a lazy, single-pass sequence of completion text fragments.
// Next blocks on the network read; it returns false once the stream ends or
// fails, after which Err reports the failure (nil on a clean end).
type FragmentStream interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// ErrStreamCanceled is reported when the consumer stops a stream early.
var ErrStreamCanceled = errors.New("stream canceled")

// Accumulate drains stream into a single string. onFragment, when non-nil, is
// called for every fragment as it arrives; returning an error stops the stream
// and the error is returned wrapped in ErrStreamCanceled.
func Accumulate(stream FragmentStream, onFragment func(string) error) (string, error) {
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		fragment := stream.Fragment()
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)

		if onFragment != nil {
			if err := onFragment(fragment); err != nil {
				return full.String(), errors.Join(ErrStreamCanceled, err)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return full.String(), err
	}
	return full.String(), nil
}

// SliceStream replays fixed fragments, then err (if any). It backs tests and
// any caller that already has the full answer in memory.
type SliceStream struct {
	fragments []string
	err       error
	pos       int
	closed    bool
}

// NewSliceStream returns a stream yielding fragments in order and then failing with err.
func NewSliceStream(fragments []string, err error) *SliceStream {
	return &SliceStream{fragments: fragments, err: err, pos: -1}
}

func (s *SliceStream) Next() bool {
	if s.closed || s.pos+1 >= len(s.fragments) {
		s.pos = len(s.fragments)
		return false
	}
	s.pos++
	return true
}

func (s *SliceStream) Fragment() string {
	if s.pos < 0 || s.pos >= len(s.fragments) {
		return ""
	}
	return s.fragments[s.pos]
}

func (s *SliceStream) Err() error {
	return s.err
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceStream) Closed() bool {
	return s.closed
}
