package meetupstream

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/rsvpstream/errors"
)

func pushAll(t *testing.T, f *Framer, chunks ...[]byte) [][]byte {
	t.Helper()
	var frames [][]byte
	for _, chunk := range chunks {
		got, err := f.Push(chunk)
		require.NoError(t, err)
		frames = append(frames, got...)
	}
	return frames
}

func TestFramerSingleFrame(t *testing.T) {
	f := NewFramer(0)
	frames := pushAll(t, f, []byte("{\"rsvp_id\":1}\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte(`{"rsvp_id":1}`), frames[0])
	assert.Zero(t, f.Pending())
}

func TestFramerNoNewlineBuffers(t *testing.T) {
	f := NewFramer(0)
	frames := pushAll(t, f, []byte("partial"))
	assert.Empty(t, frames)
	assert.Equal(t, 7, f.Pending())
}

func TestFramerFrameSplitAcrossPushes(t *testing.T) {
	f := NewFramer(0)
	frames := pushAll(t, f,
		[]byte(`{"rsvp_`),
		[]byte(`id":42`),
		[]byte("}\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte(`{"rsvp_id":42}`), frames[0])
}

func TestFramerMultipleFramesInOneChunk(t *testing.T) {
	f := NewFramer(0)
	frames := pushAll(t, f, []byte("a\nb\nc\ntrailing"))
	require.Len(t, frames, 3)
	assert.Equal(t, []byte("a"), frames[0])
	assert.Equal(t, []byte("b"), frames[1])
	assert.Equal(t, []byte("c"), frames[2])
	assert.Equal(t, 8, f.Pending())
}

func TestFramerEmptyFrames(t *testing.T) {
	f := NewFramer(0)
	frames := pushAll(t, f, []byte("\n\nx\n"))
	require.Len(t, frames, 3)
	assert.Empty(t, frames[0])
	assert.Empty(t, frames[1])
	assert.Equal(t, []byte("x"), frames[2])
}

func TestFramerReturnsCopies(t *testing.T) {
	f := NewFramer(0)
	chunk := []byte("first\nsecond\n")
	frames := pushAll(t, f, chunk)
	require.Len(t, frames, 2)

	// Mutating the input must not affect already-returned frames
	copy(chunk, bytes.Repeat([]byte("X"), len(chunk)))
	assert.Equal(t, []byte("first"), frames[0])
	assert.Equal(t, []byte("second"), frames[1])
}

func TestFramerMaxFrameExceeded(t *testing.T) {
	f := NewFramer(8)
	_, err := f.Push([]byte("0123456789 no newline"))
	assert.ErrorIs(t, err, errors.ErrFrameTooLarge)
	assert.Zero(t, f.Pending(), "buffer is dropped after overflow")
}

func TestFramerMaxFrameCountsOnlyRemainder(t *testing.T) {
	f := NewFramer(8)
	frames, err := f.Push([]byte("this frame is longer than eight bytes\nok"))
	require.NoError(t, err, "completed frames are not bounded, only the remainder")
	require.Len(t, frames, 1)
	assert.Equal(t, 2, f.Pending())
}

func TestFramerDiscard(t *testing.T) {
	f := NewFramer(0)
	pushAll(t, f, []byte("incomplete"))
	require.Equal(t, 10, f.Pending())

	f.Discard()
	assert.Zero(t, f.Pending())

	// Bytes after a discard start a fresh frame
	frames := pushAll(t, f, []byte("fresh\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("fresh"), frames[0])
}

// Frame boundaries must not depend on how the stream was chunked: any
// segmentation of the same byte stream yields the same frames.
func TestFramerChunkingInvariance(t *testing.T) {
	stream := []byte(`{"rsvp_id":1,"response":"yes"}` + "\n" +
		`{"rsvp_id":2}` + "\n" + "\n" +
		`{"rsvp_id":3,"guests":2}` + "\n")

	whole := NewFramer(0)
	want := pushAll(t, whole, stream)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		f := NewFramer(0)
		var got [][]byte
		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			frames, err := f.Push(rest[:n])
			require.NoError(t, err)
			got = append(got, frames...)
			rest = rest[n:]
		}
		require.Equal(t, want, got, "trial %d", trial)
		assert.Zero(t, f.Pending())
	}
}
