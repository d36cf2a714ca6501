package save

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"vfdump/gba/emulator/backup"
)

func TestReadRequest(t *testing.T) {
	tests := []struct {
		name   string
		v      eepromVariant
		offset int
		want   []uint16
	}{
		{
			name:   "512 block 0",
			v:      eeprom512,
			offset: 0,
			want:   []uint16{1, 1, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name:   "512 block 37",
			v:      eeprom512,
			offset: 37,
			want:   []uint16{1, 1, 1, 0, 0, 1, 0, 1, 0},
		},
		{
			name:   "8K block 0x3FF",
			v:      eeprom8K,
			offset: 0x3FF,
			want:   []uint16{1, 1, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readRequest(tt.v, tt.offset); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("readRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteRequest(t *testing.T) {
	src := []byte{0, 1, 2, 3, 4, 5, 6, 7}

	for _, v := range []eepromVariant{eeprom512, eeprom8K} {
		p := writeRequest(v, 1, src)
		if actual, expected := len(p), 2+v.addrBits+64+1; actual != expected {
			t.Fatalf("%v: length, actual = %v, expected = %v", v.kind, actual, expected)
		}
		if p[0] != 1 || p[1] != 0 || p[len(p)-1] != 0 {
			t.Fatalf("%v: framing %v", v.kind, p)
		}
		if p[1+v.addrBits] != 1 {
			t.Fatalf("%v: address lsb should be 1: %v", v.kind, p[2:2+v.addrBits])
		}

		data := p[2+v.addrBits : len(p)-1]
		if actual, expected := data[0:8], []uint16{0, 0, 0, 0, 0, 0, 0, 0}; !reflect.DeepEqual(actual, expected) {
			t.Errorf("%v: byte 0, actual = %v, expected = %v", v.kind, actual, expected)
		}
		if actual, expected := data[8:16], []uint16{0, 0, 0, 0, 0, 0, 0, 1}; !reflect.DeepEqual(actual, expected) {
			t.Errorf("%v: byte 1, actual = %v, expected = %v", v.kind, actual, expected)
		}
		if actual, expected := data[56:64], []uint16{0, 0, 0, 0, 0, 1, 1, 1}; !reflect.DeepEqual(actual, expected) {
			t.Errorf("%v: byte 7, actual = %v, expected = %v", v.kind, actual, expected)
		}
	}
}

func TestUnpackResponse(t *testing.T) {
	words := make([]uint16, eepromResponseWords)
	// dummy bits are ignored even when set
	words[0], words[3] = 1, 1
	// 0x81 then 0x40, with garbage in the upper bits of each word
	words[4], words[11] = 0xFFFF, 0x0003
	words[13] = 0x8001

	dest := make([]byte, EEPROMBlockSize)
	unpackResponse(words, dest)
	if actual, expected := dest, []byte{0x81, 0x40, 0, 0, 0, 0, 0, 0}; !bytes.Equal(actual, expected) {
		t.Fatalf("actual = % x, expected = % x", actual, expected)
	}
}

func TestEEPROM_RoundTrip(t *testing.T) {
	tests := []struct {
		kind Kind
		chip *backup.EEPROM
	}{
		{EEPROM512, backup.NewEEPROM512()},
		{EEPROM8K, backup.NewEEPROM8K()},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			tt.chip.BusyReads = 3
			s, _ := newSubsystem(t, nil, tt.chip)
			tech := Lookup(tt.kind)

			data := pattern(tech.Size)
			if err := tech.Put(s, data); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(tt.chip.Bytes(), data) {
				t.Fatal("chip contents differ from written data")
			}
			if actual, expected := tt.chip.Writes, tech.Size/EEPROMBlockSize; actual != expected {
				t.Fatalf("Writes, actual = %v, expected = %v", actual, expected)
			}

			got := make([]byte, tech.Size)
			if err := tech.Get(s, got); err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, data) {
				t.Fatal("read back differs from written data")
			}
		})
	}
}

func TestEEPROM_Blocks(t *testing.T) {
	chip := backup.NewEEPROM8K()
	s, _ := newSubsystem(t, nil, chip)

	src := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 1, 2, 3}
	if err := s.WriteEEPROMBlock(EEPROM8K, 1023, src); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(chip.Bytes()[1023*8:], src) {
		t.Fatalf("block 1023 = % x", chip.Bytes()[1023*8:])
	}

	dest := make([]byte, 8)
	if err := s.ReadEEPROMBlock(EEPROM8K, 1023, dest); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dest, src) {
		t.Fatalf("actual = % x, expected = % x", dest, src)
	}

	var re *RangeError
	if err := s.ReadEEPROMBlock(EEPROM512, 64, dest); !errors.As(err, &re) {
		t.Fatalf("expected RangeError, got %v", err)
	}
	var se *SizeError
	if err := s.WriteEEPROMBlock(EEPROM8K, 0, src[:4]); !errors.As(err, &se) {
		t.Fatalf("expected SizeError, got %v", err)
	}
	if err := s.ReadEEPROMBlock(SRAM32K, 0, dest); err == nil {
		t.Fatal("expected error for non-EEPROM kind")
	}
}

func TestEEPROM_WriteTimeout(t *testing.T) {
	chip := backup.NewEEPROM512()
	chip.StuckBusy = true
	s, _ := newSubsystem(t, nil, chip, WithPoller(Poller{MaxIterations: 50}))

	err := s.WriteEEPROMBlock(EEPROM512, 3, make([]byte, 8))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) || te.Op != "eeprom-write" {
		t.Fatalf("unexpected error %v", err)
	}

	err = Lookup(EEPROM512).Put(s, make([]byte, backup.EEPROM512Size))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout from whole chip write, got %v", err)
	}
}

func TestEEPROM_BlockDelayAndProgress(t *testing.T) {
	sleeps := 0
	var last Progress
	s, _ := newSubsystem(t, nil, backup.NewEEPROM512(),
		WithBlockDelay(2*time.Millisecond),
		WithSleep(func(d time.Duration) {
			if d != 2*time.Millisecond {
				t.Errorf("slept %v", d)
			}
			sleeps++
		}),
		WithProgress(func(p Progress) { last = p }),
	)

	if err := Lookup(EEPROM512).Get(s, make([]byte, backup.EEPROM512Size)); err != nil {
		t.Fatal(err)
	}
	if actual, expected := sleeps, 64; actual != expected {
		t.Errorf("sleeps, actual = %v, expected = %v", actual, expected)
	}
	if last.Op != "get" || last.Kind != EEPROM512 || last.Done != last.Total || last.Percentage() != 100 {
		t.Errorf("last progress %+v", last)
	}
}

func TestEEPROM_DMATimeout(t *testing.T) {
	tests := []struct {
		name string
		run  func(s *Subsystem) error
	}{
		{
			name: "read block",
			run: func(s *Subsystem) error {
				return s.ReadEEPROMBlock(EEPROM8K, 7, make([]byte, EEPROMBlockSize))
			},
		},
		{
			name: "write block",
			run: func(s *Subsystem) error {
				return s.WriteEEPROMBlock(EEPROM512, 7, make([]byte, EEPROMBlockSize))
			},
		},
		{
			name: "whole chip",
			run: func(s *Subsystem) error {
				return Lookup(EEPROM8K).Get(s, make([]byte, backup.EEPROM8KSize))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, q := newSubsystem(t, nil, backup.NewEEPROM8K(), WithPoller(Poller{MaxIterations: 20}))
			s.bus = &busyDMABus{Bus: q}

			err := tt.run(s)
			var te *TimeoutError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TimeoutError, got %v", err)
			}
			if actual, expected := te.Op, "dma"; actual != expected {
				t.Errorf("Op, actual = %v, expected = %v", actual, expected)
			}
			if actual, expected := te.Iterations, 20; actual != expected {
				t.Errorf("Iterations, actual = %v, expected = %v", actual, expected)
			}
		})
	}
}
