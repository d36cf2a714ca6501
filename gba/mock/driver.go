package mock

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"vfdump/gba"
	"vfdump/gba/emulator"
	"vfdump/gba/emulator/backup"
)

const driverName = "mock"

// Driver opens an emulated cartridge. The name is "rom-file[;chip[;save-file]]" where chip is one
// of sram, flash64k, flash128k, eeprom512, eeprom8k, none or auto (the default). An existing save
// file is loaded into the chip and the chip's contents are written back to it on Close.
type Driver struct{}

type Conn struct {
	*emulator.System

	savePath string
}

var ErrUnknownChip = errors.New("mock: unknown backup chip")

// NewChip creates an erased backup chip by name.
func NewChip(kind string) (backup.Chip, error) {
	switch strings.ToLower(kind) {
	case "sram":
		return backup.NewSRAM(), nil
	case "flash64k", "flash":
		return backup.NewFlash64K(), nil
	case "flash128k", "flash1m":
		return backup.NewFlash128K(), nil
	case "eeprom512":
		return backup.NewEEPROM512(), nil
	case "eeprom8k", "eeprom":
		return backup.NewEEPROM8K(), nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownChip, kind)
}

// SniffChip picks a chip from the library identifiers present in the ROM image. EEPROM sizes
// cannot be told apart from the ROM alone; saveSize disambiguates when known.
func SniffChip(rom []byte, saveSize int) backup.Chip {
	switch {
	case bytes.Contains(rom, []byte("FLASH1M_")):
		return backup.NewFlash128K()
	case bytes.Contains(rom, []byte("FLASH512_")), bytes.Contains(rom, []byte("FLASH_")):
		return backup.NewFlash64K()
	case bytes.Contains(rom, []byte("EEPROM_")):
		if saveSize == backup.EEPROM512Size {
			return backup.NewEEPROM512()
		}
		return backup.NewEEPROM8K()
	case bytes.Contains(rom, []byte("SRAM_")):
		return backup.NewSRAM()
	}
	return nil
}

func (d *Driver) Open(name string) (gba.Conn, error) {
	parts := strings.Split(name, ";")

	rom, err := os.ReadFile(parts[0])
	if err != nil {
		return nil, fmt.Errorf("mock: could not load rom: %w", err)
	}

	kind := "auto"
	if len(parts) > 1 && parts[1] != "" {
		kind = parts[1]
	}

	c := &Conn{}
	var save []byte
	if len(parts) > 2 && parts[2] != "" {
		c.savePath = parts[2]
		save, err = os.ReadFile(c.savePath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("mock: could not load save: %w", err)
		}
	}

	var chip backup.Chip
	if kind == "auto" {
		chip = SniffChip(rom, len(save))
	} else if chip, err = NewChip(kind); err != nil {
		return nil, err
	}

	if chip != nil && save != nil {
		if err = chip.Load(save); err != nil {
			return nil, err
		}
		log.Printf("mock: save loaded from %s\n", c.savePath)
	}

	c.System = emulator.New(rom, chip)
	log.Printf("mock: cartridge %s with %v\n", parts[0], chip)
	return c, nil
}

// Close powers the console off and writes the save file.
func (c *Conn) Close() error {
	c.Reset()

	if c.savePath == "" || c.Backup == nil {
		return nil
	}

	err := os.WriteFile(c.savePath, c.Backup.Bytes(), 0644)
	if err != nil {
		return fmt.Errorf("mock: could not write save: %w", err)
	}
	log.Printf("mock: save written to %s\n", c.savePath)
	return nil
}

func init() {
	gba.Register(driverName, &Driver{})
}
