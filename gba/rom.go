package gba

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"
)

const HeaderSize = 0xC0

type ROM struct {
	Contents []byte

	Header Header
}

// $08000000
type Header struct {
	EntryPoint      uint32
	Logo            [156]byte
	Title           [12]byte
	GameCode        [4]byte
	MakerCode       [2]byte
	Fixed           byte // always $96
	UnitCode        byte
	DeviceType      byte
	Reserved1       [7]byte
	SoftwareVersion byte
	ComplementCheck byte
	Reserved2       [2]byte
}

func NewROM(contents []byte) (r *ROM, err error) {
	if len(contents) < HeaderSize {
		return nil, fmt.Errorf("ROM file not big enough to contain GBA header")
	}

	r = &ROM{
		Contents: contents,
	}

	// Read GBA header:
	b := bytes.NewReader(contents[:HeaderSize])
	err = readBinaryStruct(b, &r.Header)
	if err != nil {
		return
	}

	return
}

func readBinaryStruct(b *bytes.Reader, into interface{}) (err error) {
	hv := reflect.ValueOf(into).Elem()
	for i := 0; i < hv.NumField(); i++ {
		f := hv.Field(i)

		if !f.CanAddr() {
			panic(fmt.Errorf("error handling struct field %s of type %s; cannot take address of field", hv.Type().Field(i).Name, hv.Type().Name()))
		}

		p := f.Addr().Interface()
		err = binary.Read(b, binary.LittleEndian, p)
		if err != nil {
			return fmt.Errorf("error reading struct field %s of type %s: %w", hv.Type().Field(i).Name, hv.Type().Name(), err)
		}
	}
	return
}

// TitleString returns the title with NUL padding removed.
func (h *Header) TitleString() string {
	return string(bytes.TrimRight(h.Title[:], "\x00"))
}

func (h *Header) GameCodeString() string {
	return string(bytes.TrimRight(h.GameCode[:], "\x00"))
}

func (h *Header) MakerCodeString() string {
	return string(bytes.TrimRight(h.MakerCode[:], "\x00"))
}

// ComputeComplement calculates the header checksum over $A0..$BC as the BIOS does.
func (h *Header) ComputeComplement() byte {
	var chk byte
	sum := func(p []byte) {
		for _, v := range p {
			chk -= v
		}
	}
	sum(h.Title[:])
	sum(h.GameCode[:])
	sum(h.MakerCode[:])
	sum([]byte{h.Fixed, h.UnitCode, h.DeviceType})
	sum(h.Reserved1[:])
	sum([]byte{h.SoftwareVersion})
	return chk - 0x19
}

// IsValid reports whether the header carries the fixed value and a matching complement check.
func (r *ROM) IsValid() bool {
	return r.Header.Fixed == 0x96 && r.Header.ComputeComplement() == r.Header.ComplementCheck
}

// ReadHeader reads and parses the header of the cartridge on b.
func ReadHeader(b Bus) (*ROM, error) {
	contents := make([]byte, HeaderSize)
	ReadBlock(b, ROMStart, contents)
	if err := Err(b); err != nil {
		return nil, err
	}
	return NewROM(contents)
}

// ROMReader exposes the cartridge ROM window of a Bus as an io.ReaderAt.
type ROMReader struct {
	bus Bus
}

func NewROMReader(b Bus) *ROMReader {
	return &ROMReader{bus: b}
}

func (r *ROMReader) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("gba: negative ROM offset %d", off)
	}
	if off >= ROMMaxSize {
		return 0, io.EOF
	}

	n = len(p)
	if rem := ROMMaxSize - off; int64(n) > rem {
		n = int(rem)
		err = io.EOF
	}

	ReadBlock(r.bus, ROMStart+uint32(off), p[:n])
	if e := Err(r.bus); e != nil {
		return 0, e
	}
	return
}
