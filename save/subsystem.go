// Package save reads and writes the backup memory of GBA cartridges.
//
// Cartridges keep their saves in one of three incompatible technologies: serial EEPROM reached
// bit by bit through DMA, battery backed SRAM, or command-sequenced flash. Detect identifies the
// technology and capacity of the inserted cartridge; the returned Technology then moves the whole
// save between the cartridge and a caller-owned buffer:
//
//	s := save.New(bus)
//	tech, err := save.Detect(s)
//	if err != nil {
//		return err
//	}
//	data := make([]byte, tech.Size)
//	err = tech.Get(s, data)
//
// A Subsystem is the only way to reach the hardware: it owns the DMA engine and the flash bank
// latch, and serialises every operation.
package save

import (
	"log"
	"sync"
	"time"

	"vfdump/gba"
)

// Subsystem grants exclusive access to the save hardware of one cartridge.
type Subsystem struct {
	mu sync.Mutex

	bus gba.Bus
	cfg Config

	// bank last selected on a 128KiB flash chip; -1 when unknown
	bank int
}

// New creates the subsystem handle for the cartridge reached through bus.
func New(bus gba.Bus, opts ...Option) *Subsystem {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Subsystem{
		bus:  bus,
		cfg:  cfg,
		bank: -1,
	}
}

// Header reads the cartridge header.
func (s *Subsystem) Header() (*gba.ROM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gba.ReadHeader(s.bus)
}

// Bank returns the flash bank last selected, or -1 when it is unknown: before the first select
// or after a failed operation on a 128KiB chip.
func (s *Subsystem) Bank() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank
}

func (s *Subsystem) logf(format string, args ...interface{}) {
	s.cfg.Logger.Printf("save: "+format, args...)
}

// wait polls done through the configured poller. A failing bus ends the wait with the bus error.
func (s *Subsystem) wait(op string, done func() bool) error {
	n, err := s.cfg.Poller.Until(op, func() bool {
		return done() || gba.Err(s.bus) != nil
	})
	if s.cfg.WaitObserver != nil {
		s.cfg.WaitObserver(op, n)
	}
	if berr := gba.Err(s.bus); berr != nil {
		return berr
	}
	return err
}

func (s *Subsystem) delay() {
	if s.cfg.BlockDelay > 0 {
		s.cfg.Sleep(s.cfg.BlockDelay)
	}
}

func (s *Subsystem) progress(op string, kind Kind, done, total int) {
	if s.cfg.Progress != nil {
		s.cfg.Progress(Progress{Op: op, Kind: kind, Done: done, Total: total})
	}
}

// Progress reports how far a whole-chip transfer has come. Done and Total count bytes.
type Progress struct {
	Op    string // "get" or "put"
	Kind  Kind
	Done  int
	Total int
}

// Percentage returns the completed share of the transfer.
func (p Progress) Percentage() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Done) * 100 / float64(p.Total)
}

// DefaultBlockDelay is the pause between EEPROM blocks that lets the chip recover after each access.
const DefaultBlockDelay = time.Millisecond

// Config holds the subsystem configuration.
type Config struct {
	// Poller bounds every completion wait (DMA, EEPROM write, flash toggle bits)
	Poller Poller

	// BlockDelay is waited between whole-chip EEPROM block accesses
	BlockDelay time.Duration

	// Sleep implements BlockDelay
	Sleep func(time.Duration)

	// Scratch is the IWRAM address where bit-serial packets are staged for DMA
	Scratch uint32

	// Logger receives operation logs
	Logger *log.Logger

	// WaitObserver is told how many polls each completion wait took (optional)
	WaitObserver func(op string, iterations int)

	// Progress is called as whole-chip transfers advance (optional)
	Progress func(Progress)
}

func defaultConfig() Config {
	return Config{
		Poller:     DefaultPoller,
		BlockDelay: DefaultBlockDelay,
		Sleep:      time.Sleep,
		Scratch:    gba.DefaultScratch,
		Logger:     log.Default(),
	}
}

// Option is a functional option for configuring the Subsystem.
type Option func(*Config)

// WithPoller bounds completion waits.
//
// Example:
//
//	s := save.New(bus, save.WithPoller(save.Poller{MaxIterations: 1000}))
func WithPoller(p Poller) Option {
	return func(c *Config) {
		c.Poller = p
	}
}

// WithBlockDelay sets the pause between EEPROM blocks. Zero disables it.
func WithBlockDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.BlockDelay = d
		}
	}
}

// WithSleep replaces the function used to wait out BlockDelay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) {
		if sleep != nil {
			c.Sleep = sleep
		}
	}
}

// WithScratch moves the IWRAM packet staging area.
func WithScratch(addr uint32) Option {
	return func(c *Config) {
		c.Scratch = addr
	}
}

// WithLogger sets the logger for subsystem operations.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithWaitObserver registers a callback that receives the poll count of every completion wait.
//
// Example:
//
//	stats := save.NewWaitStats()
//	s := save.New(bus, save.WithWaitObserver(stats.Observe))
func WithWaitObserver(observe func(op string, iterations int)) Option {
	return func(c *Config) {
		c.WaitObserver = observe
	}
}

// WithProgress registers a callback for whole-chip transfer progress.
func WithProgress(progress func(Progress)) Option {
	return func(c *Config) {
		c.Progress = progress
	}
}
