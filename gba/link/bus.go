package link

import (
	"fmt"

	"vfdump/gba"
)

// RoundTripper carries one encoded request to the far end and returns its encoded response.
type RoundTripper interface {
	RoundTrip(req []byte) ([]byte, error)
	Close() error
}

// writes queued before a batch is sent without waiting for a read
const maxPending = 1024

// Bus is a gba.Bus whose accesses are executed remotely. It is not safe for concurrent use.
//
// Writes are queued and sent together with the next read. The first failure is sticky: later
// reads return 0, later writes are dropped, and Err reports the failure.
type Bus struct {
	rt      RoundTripper
	pending []Op
	err     error

	// number of round trips made
	RoundTrips int
}

var _ gba.Conn = (*Bus)(nil)
var _ gba.BlockReader = (*Bus)(nil)

func NewBus(rt RoundTripper) *Bus {
	return &Bus{rt: rt, pending: make([]Op, 0, 64)}
}

func (b *Bus) Err() error {
	return b.err
}

func (b *Bus) queue(op Op) {
	if b.err != nil {
		return
	}
	b.pending = append(b.pending, op)
	if !op.Kind.IsRead() && len(b.pending) >= maxPending {
		b.Flush()
	}
}

// Flush sends queued writes.
func (b *Bus) Flush() error {
	if len(b.pending) > 0 {
		b.exec()
	}
	return b.err
}

// exec sends the queued ops and returns their results.
func (b *Bus) exec() []Result {
	ops := b.pending
	b.pending = b.pending[:0]
	if b.err != nil {
		return nil
	}

	b.RoundTrips++
	rsp, err := b.rt.RoundTrip(MarshalRequest(ops))
	if err != nil {
		b.err = fmt.Errorf("link: round trip: %w", err)
		return nil
	}

	results, err := UnmarshalResponse(rsp)
	if err != nil {
		b.err = err
		return nil
	}
	if len(results) != len(ops) {
		b.err = fmt.Errorf("%w: %d results for %d ops", ErrMalformed, len(results), len(ops))
		return nil
	}
	return results
}

func (b *Bus) read(op Op) Result {
	b.queue(op)
	results := b.exec()
	if results == nil {
		return Result{}
	}
	return results[len(results)-1]
}

func (b *Bus) Read8(addr uint32) uint8 {
	return uint8(b.read(Op{Kind: Read8, Addr: addr}).Value)
}

func (b *Bus) Read16(addr uint32) uint16 {
	return uint16(b.read(Op{Kind: Read16, Addr: addr}).Value)
}

func (b *Bus) Read32(addr uint32) uint32 {
	return b.read(Op{Kind: Read32, Addr: addr}).Value
}

func (b *Bus) Write8(addr uint32, value uint8) {
	b.queue(Op{Kind: Write8, Addr: addr, Value: uint32(value)})
}

func (b *Bus) Write16(addr uint32, value uint16) {
	b.queue(Op{Kind: Write16, Addr: addr, Value: uint32(value)})
}

func (b *Bus) Write32(addr uint32, value uint32) {
	b.queue(Op{Kind: Write32, Addr: addr, Value: value})
}

// ReadBlock reads p in chunks of at most MaxBlock bytes. On failure p is zeroed from the failed
// chunk on.
func (b *Bus) ReadBlock(addr uint32, p []byte) {
	for len(p) > 0 {
		n := len(p)
		if n > MaxBlock {
			n = MaxBlock
		}

		r := b.read(Op{Kind: ReadBlock, Addr: addr, Length: uint32(n)})
		if b.err == nil && len(r.Data) != n {
			b.err = fmt.Errorf("%w: block of %d bytes for %d requested", ErrMalformed, len(r.Data), n)
		}
		if b.err != nil {
			for i := range p {
				p[i] = 0
			}
			return
		}

		copy(p, r.Data)
		p = p[n:]
		addr += uint32(n)
	}
}

// Close sends any queued writes and closes the transport.
func (b *Bus) Close() error {
	ferr := b.Flush()
	if err := b.rt.Close(); err != nil {
		return err
	}
	return ferr
}
