package meetupstream

import (
	"bytes"

	"github.com/c360/rsvpstream/errors"
)

// Framer splits an incoming byte stream into newline-delimited frames.
//
// It is a pure accumulator with no transport knowledge: bytes go in via Push
// in whatever chunks the socket hands us, complete frames come out. The
// newline itself is never part of a frame. Any trailing bytes without a
// newline stay buffered until the next Push or a Discard.
//
// Invariant: every byte pushed is assigned to exactly one frame, except the
// incomplete trailing remainder. Frame boundaries are independent of how the
// byte stream was chunked across reads.
type Framer struct {
	buf      []byte
	maxFrame int
}

// NewFramer creates a framer. maxFrame bounds the buffered remainder so a
// stream that never sends a newline cannot grow memory without limit;
// 0 means no limit.
func NewFramer(maxFrame int) *Framer {
	return &Framer{maxFrame: maxFrame}
}

// Push appends a chunk of bytes and returns all frames completed by it, in
// wire order. Returned frames are private copies; the caller may retain them
// after the framer's buffer is reused. Empty frames (heartbeat blank lines)
// are returned as zero-length slices for the caller to filter.
//
// Returns ErrFrameTooLarge when the buffered remainder exceeds maxFrame;
// the connection should be dropped and the buffer discarded.
func (f *Framer) Push(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var frames [][]byte
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}

		frame := make([]byte, idx)
		copy(frame, f.buf[:idx])
		frames = append(frames, frame)

		f.buf = f.buf[idx+1:]
	}

	if f.maxFrame > 0 && len(f.buf) > f.maxFrame {
		f.buf = nil
		return frames, errors.ErrFrameTooLarge
	}

	return frames, nil
}

// Pending returns the number of buffered bytes awaiting a newline.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Discard drops the incomplete trailing remainder. Called when a connection
// ends: the feed offers no resumption token, so a partial frame can never be
// completed by the next connection.
func (f *Framer) Discard() {
	f.buf = nil
}
