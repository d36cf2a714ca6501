package save

import (
	"fmt"
	"strings"
)

// Kind identifies a save technology and capacity.
type Kind int

const (
	Unknown Kind = iota
	EEPROM512
	EEPROM8K
	SRAM32K
	Flash64K
	Flash128K
)

var kindNames = [...]string{
	Unknown:   "none",
	EEPROM512: "eeprom512",
	EEPROM8K:  "eeprom8k",
	SRAM32K:   "sram32k",
	Flash64K:  "flash64k",
	Flash128K: "flash128k",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts the names returned by Kind.String.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return Unknown, fmt.Errorf("save: unknown save type %q", name)
}

// Technology moves a whole save of one kind between the cartridge and a buffer of exactly Size
// bytes.
type Technology struct {
	Kind Kind
	Size int

	get func(s *Subsystem, data []byte) error
	put func(s *Subsystem, data []byte) error
}

// None is the technology of a cartridge without backup memory. Every transfer fails with
// ErrNoSave.
var None = &Technology{Kind: Unknown}

var technologies = map[Kind]*Technology{
	Unknown: None,
	EEPROM512: {
		Kind: EEPROM512,
		Size: eeprom512.size(),
		get:  func(s *Subsystem, data []byte) error { return s.getEEPROM(eeprom512, data) },
		put:  func(s *Subsystem, data []byte) error { return s.putEEPROM(eeprom512, data) },
	},
	EEPROM8K: {
		Kind: EEPROM8K,
		Size: eeprom8K.size(),
		get:  func(s *Subsystem, data []byte) error { return s.getEEPROM(eeprom8K, data) },
		put:  func(s *Subsystem, data []byte) error { return s.putEEPROM(eeprom8K, data) },
	},
	SRAM32K: {
		Kind: SRAM32K,
		Size: 0x8000,
		get:  (*Subsystem).getSRAM,
		put:  (*Subsystem).putSRAM,
	},
	Flash64K: {
		Kind: Flash64K,
		Size: flashBankSize,
		get:  func(s *Subsystem, data []byte) error { return s.getFlash(Flash64K, data) },
		put:  func(s *Subsystem, data []byte) error { return s.putFlash(Flash64K, data) },
	},
	Flash128K: {
		Kind: Flash128K,
		Size: 2 * flashBankSize,
		get:  func(s *Subsystem, data []byte) error { return s.getFlash(Flash128K, data) },
		put:  func(s *Subsystem, data []byte) error { return s.putFlash(Flash128K, data) },
	},
}

// Lookup returns the technology of a kind, or None for unknown kinds.
func Lookup(kind Kind) *Technology {
	if t, ok := technologies[kind]; ok {
		return t
	}
	return None
}

func (t *Technology) String() string {
	return t.Kind.String()
}

// Get reads the whole save into data, which must be exactly Size bytes long.
func (t *Technology) Get(s *Subsystem, data []byte) error {
	if err := t.check(data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logf("get %v (%d bytes)\n", t.Kind, t.Size)
	return t.get(s, data)
}

// Put writes data, which must be exactly Size bytes long, as the whole save.
func (t *Technology) Put(s *Subsystem, data []byte) error {
	if err := t.check(data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logf("put %v (%d bytes)\n", t.Kind, t.Size)
	return t.put(s, data)
}

func (t *Technology) check(data []byte) error {
	if t.get == nil {
		return ErrNoSave
	}
	if len(data) != t.Size {
		return &SizeError{Kind: t.Kind, Want: t.Size, Got: len(data)}
	}
	return nil
}
