package link

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"vfdump/gba"
)

// Exec decodes a request, performs its ops on bus in order and encodes the response. A failing
// bus ends the batch; the results up to the failure are returned along with the error.
func Exec(bus gba.Bus, req []byte) []byte {
	ops, err := UnmarshalRequest(req)
	if err != nil {
		return MarshalResponse(nil, err)
	}

	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		var r Result
		switch op.Kind {
		case Read8:
			r.Value = uint32(bus.Read8(op.Addr))
		case Read16:
			r.Value = uint32(bus.Read16(op.Addr))
		case Read32:
			r.Value = bus.Read32(op.Addr)
		case Write8:
			bus.Write8(op.Addr, uint8(op.Value))
		case Write16:
			bus.Write16(op.Addr, uint16(op.Value))
		case Write32:
			bus.Write32(op.Addr, op.Value)
		case ReadBlock:
			if op.Length == 0 || op.Length > MaxBlock {
				return MarshalResponse(results, fmt.Errorf("block length %d out of range", op.Length))
			}
			r.Data = make([]byte, op.Length)
			gba.ReadBlock(bus, op.Addr, r.Data)
		}
		if err = gba.Err(bus); err != nil {
			return MarshalResponse(results, err)
		}
		results = append(results, r)
	}
	return MarshalResponse(results, nil)
}

// Server executes requests against one bus, one request at a time.
type Server struct {
	mu  sync.Mutex
	bus gba.Bus
}

func NewServer(bus gba.Bus) *Server {
	return &Server{bus: bus}
}

func (s *Server) Exec(req []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Exec(s.bus, req)
}

// ServeStream answers framed requests read from rw until the stream ends.
func (s *Server) ServeStream(rw io.ReadWriter) error {
	for {
		req, err := ReadFrame(rw)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err = WriteFrame(rw, s.Exec(req)); err != nil {
			return err
		}
	}
}
