package link

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Stream transports delimit messages with an 8 byte header: the magic "GBAL" followed by the
// little-endian payload length.
const (
	FrameHeaderSize = 8
	MaxFrame        = 4 * MaxBlock
)

var frameMagic = [4]byte{'G', 'B', 'A', 'L'}

// EncodeFrame prefixes p with its frame header.
func EncodeFrame(p []byte) []byte {
	f := make([]byte, FrameHeaderSize+len(p))
	copy(f, frameMagic[:])
	binary.LittleEndian.PutUint32(f[4:], uint32(len(p)))
	copy(f[FrameHeaderSize:], p)
	return f
}

// FrameLength validates a frame header and returns the payload length.
func FrameLength(hdr []byte) (int, error) {
	if len(hdr) < FrameHeaderSize || string(hdr[:4]) != string(frameMagic[:]) {
		return 0, fmt.Errorf("%w: bad frame header % x", ErrMalformed, hdr)
	}
	n := binary.LittleEndian.Uint32(hdr[4:])
	if n > MaxFrame {
		return 0, fmt.Errorf("%w: frame of %d bytes", ErrMalformed, n)
	}
	return int(n), nil
}

func WriteFrame(w io.Writer, p []byte) error {
	_, err := w.Write(EncodeFrame(p))
	return err
}

// ReadFrame reads one frame. A stream that ends cleanly between frames returns io.EOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	hdr := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, err
	}
	n, err := FrameLength(hdr)
	if err != nil {
		return nil, err
	}
	p := make([]byte, n)
	if _, err = io.ReadFull(r, p); err != nil {
		return nil, err
	}
	return p, nil
}
