// Package link carries bus accesses to a remote cartridge adapter and back.
//
// Accesses are batched: writes are queued until the next read, and each batch travels as one
// request message. Requests and responses use the protocol buffers wire format so that any
// transport (a serial line, a websocket, gRPC) only has to move opaque byte messages.
//
//	message Op       { uint32 kind = 1; fixed32 addr = 2; uint32 value = 3; uint32 length = 4; }
//	message Request  { repeated Op ops = 1; }
//	message Result   { uint32 value = 1; bytes data = 2; }
//	message Response { repeated Result results = 1; string error = 2; }
package link

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type Kind uint8

const (
	Read8 Kind = iota + 1
	Read16
	Read32
	Write8
	Write16
	Write32
	ReadBlock
)

func (k Kind) IsRead() bool {
	return k == Read8 || k == Read16 || k == Read32 || k == ReadBlock
}

// MaxBlock is the largest ReadBlock a single op may request.
const MaxBlock = 0x10000

// Op is a single bus access.
type Op struct {
	Kind   Kind
	Addr   uint32
	Value  uint32 // written value
	Length uint32 // ReadBlock only
}

// Result answers the op at the same position in the request. Writes produce empty results.
type Result struct {
	Value uint32
	Data  []byte
}

var ErrMalformed = errors.New("link: malformed message")

// RemoteError is an error reported by the far end of the link.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "link: remote: " + e.Message
}

const (
	fieldOps     protowire.Number = 1
	fieldResults protowire.Number = 1
	fieldError   protowire.Number = 2

	fieldOpKind   protowire.Number = 1
	fieldOpAddr   protowire.Number = 2
	fieldOpValue  protowire.Number = 3
	fieldOpLength protowire.Number = 4

	fieldResultValue protowire.Number = 1
	fieldResultData  protowire.Number = 2
)

func MarshalRequest(ops []Op) []byte {
	var b, m []byte
	for _, op := range ops {
		m = m[:0]
		m = protowire.AppendTag(m, fieldOpKind, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(op.Kind))
		m = protowire.AppendTag(m, fieldOpAddr, protowire.Fixed32Type)
		m = protowire.AppendFixed32(m, op.Addr)
		if op.Value != 0 {
			m = protowire.AppendTag(m, fieldOpValue, protowire.VarintType)
			m = protowire.AppendVarint(m, uint64(op.Value))
		}
		if op.Length != 0 {
			m = protowire.AppendTag(m, fieldOpLength, protowire.VarintType)
			m = protowire.AppendVarint(m, uint64(op.Length))
		}
		b = protowire.AppendTag(b, fieldOps, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	return b
}

func UnmarshalRequest(b []byte) (ops []Op, err error) {
	err = eachField(b, func(num protowire.Number, typ protowire.Type, v uint64, p []byte) error {
		if num != fieldOps || typ != protowire.BytesType {
			return nil
		}
		var op Op
		err := eachField(p, func(num protowire.Number, typ protowire.Type, v uint64, _ []byte) error {
			switch num {
			case fieldOpKind:
				op.Kind = Kind(v)
			case fieldOpAddr:
				op.Addr = uint32(v)
			case fieldOpValue:
				op.Value = uint32(v)
			case fieldOpLength:
				op.Length = uint32(v)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if op.Kind < Read8 || op.Kind > ReadBlock {
			return fmt.Errorf("%w: op kind %d", ErrMalformed, op.Kind)
		}
		ops = append(ops, op)
		return nil
	})
	return
}

func MarshalResponse(results []Result, remoteErr error) []byte {
	var b, m []byte
	for _, r := range results {
		m = m[:0]
		if r.Value != 0 {
			m = protowire.AppendTag(m, fieldResultValue, protowire.VarintType)
			m = protowire.AppendVarint(m, uint64(r.Value))
		}
		if r.Data != nil {
			m = protowire.AppendTag(m, fieldResultData, protowire.BytesType)
			m = protowire.AppendBytes(m, r.Data)
		}
		b = protowire.AppendTag(b, fieldResults, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}
	if remoteErr != nil {
		b = protowire.AppendTag(b, fieldError, protowire.BytesType)
		b = protowire.AppendString(b, remoteErr.Error())
	}
	return b
}

// UnmarshalResponse decodes a response. An error reported by the far end is returned as a
// *RemoteError along with the results that preceded it.
func UnmarshalResponse(b []byte) (results []Result, err error) {
	var remote string
	err = eachField(b, func(num protowire.Number, typ protowire.Type, v uint64, p []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldResults:
			var r Result
			err := eachField(p, func(num protowire.Number, typ protowire.Type, v uint64, p []byte) error {
				switch num {
				case fieldResultValue:
					r.Value = uint32(v)
				case fieldResultData:
					r.Data = append([]byte{}, p...)
				}
				return nil
			})
			if err != nil {
				return err
			}
			results = append(results, r)
		case fieldError:
			remote = string(p)
		}
		return nil
	})
	if err == nil && remote != "" {
		err = &RemoteError{Message: remote}
	}
	return
}

// eachField walks the top level fields of a message. Scalar values arrive in v, length delimited
// values in p.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, p []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		var v uint64
		var p []byte
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v32 uint32
			v32, n = protowire.ConsumeFixed32(b)
			v = uint64(v32)
		case protowire.BytesType:
			p, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(num, typ, v, p); err != nil {
			return err
		}
	}
	return nil
}
