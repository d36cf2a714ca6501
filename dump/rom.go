// Package dump copies cartridge contents to and from files: the ROM, the raw backup window, and
// the save through the save subsystem.
package dump

import (
	"fmt"
	"io"
	"log"
	"strings"

	"vfdump/gba"
)

const (
	ChunkSize = 0x8000

	// ROMSize covers the largest ROM a cartridge can map
	ROMSize = gba.ROMMaxSize
	// WholeSize covers every cartridge region, wait state mirrors and backup included
	WholeSize = 0x8000000
)

// Source supplies ROM contents in place of plain bus reads. Cartridges that scramble their ROM
// need one to come out readable.
type Source interface {
	ReadChunk(addr uint32, p []byte) error
}

// Progress reports dumped bytes.
type Progress struct {
	Done  int
	Total int
}

type options struct {
	source   Source
	size     int
	progress func(Progress)
	logger   *log.Logger
}

type Option func(*options)

// WithDescrambler reads the ROM through src.
func WithDescrambler(src Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithWhole dumps the whole cartridge area instead of the 32MiB ROM.
func WithWhole() Option {
	return func(o *options) {
		o.size = WholeSize
	}
}

// WithSize limits the dump to n bytes, rounded up to whole chunks.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = (n + ChunkSize - 1) / ChunkSize * ChunkSize
		}
	}
}

func WithProgress(progress func(Progress)) Option {
	return func(o *options) {
		o.progress = progress
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// ROM copies the cartridge ROM to w chunk by chunk and returns the number of bytes written.
func ROM(bus gba.Bus, w io.Writer, opts ...Option) (n int64, err error) {
	o := options{size: ROMSize, logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	buf := make([]byte, ChunkSize)
	for offset := 0; offset < o.size; offset += ChunkSize {
		addr := gba.ROMStart + uint32(offset)
		o.logger.Printf("dump: read %08X from %08X\n", ChunkSize, offset)

		if o.source != nil {
			err = o.source.ReadChunk(addr, buf)
		} else {
			gba.ReadBlock(bus, addr, buf)
			err = gba.Err(bus)
		}
		if err != nil {
			return n, fmt.Errorf("dump: read %08X: %w", addr, err)
		}

		var m int
		m, err = w.Write(buf)
		n += int64(m)
		if err != nil {
			return n, fmt.Errorf("dump: write: %w", err)
		}

		if o.progress != nil {
			o.progress(Progress{Done: offset + ChunkSize, Total: o.size})
		}
	}
	return n, nil
}

// Header reads and parses the cartridge header.
func Header(bus gba.Bus) (*gba.ROM, error) {
	return gba.ReadHeader(bus)
}

// Title returns the game title from the cartridge header.
func Title(bus gba.Bus) (string, error) {
	title := make([]byte, gba.HeaderTitleSize)
	gba.ReadBlock(bus, gba.ROMStart+gba.HeaderTitle, title)
	if err := gba.Err(bus); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimRight(string(title), "\x00")), nil
}

// BackupWindow copies the raw 64KiB backup window to w. Flash chips show only their current bank
// and EEPROM carts show nothing useful; use Save for a proper save dump.
func BackupWindow(bus gba.Bus, w io.Writer) error {
	buf := make([]byte, gba.BackupSize)
	gba.ReadBlock(bus, gba.BackupStart, buf)
	if err := gba.Err(bus); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}
