package gba

import (
	"fmt"
	"sort"
	"sync"
)

// Bus represents access to the address space of either a physical or emulated GBA with a cartridge inserted.
// Physical cartridges are reached through a link adapter (USB serial, websocket or gRPC) that executes the accesses
// on real hardware; emulated cartridges execute them directly.
// Accesses are performed in the order issued. Bus methods do not report errors; a Bus whose accesses can fail
// records the first failure and reports it from an Err() error method (see Err).
type Bus interface {
	Read8(addr uint32) uint8
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32

	Write8(addr uint32, value uint8)
	Write16(addr uint32, value uint16)
	Write32(addr uint32, value uint32)
}

// BlockReader is implemented by a Bus that can read a contiguous run of bytes in one operation.
type BlockReader interface {
	ReadBlock(addr uint32, p []byte)
}

// Conn is an open connection to a cartridge.
type Conn interface {
	Bus

	// closes the current connection
	Close() error
}

type Driver interface {
	Open(name string) (Conn, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a GBA driver available by the provided name.
// If Register is called twice with the same name or if driver is nil,
// it panics.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("gba: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("gba: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

func unregisterAllDrivers() {
	driversMu.Lock()
	defer driversMu.Unlock()
	// For tests.
	drivers = make(map[string]Driver)
}

// Drivers returns a sorted list of the names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	list := make([]string, 0, len(drivers))
	for name := range drivers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

func Open(driverName, name string) (Conn, error) {
	driversMu.RLock()
	driveri, ok := drivers[driverName]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("gba: unknown driver %q (forgotten import?)", driverName)
	}

	c, err := driveri.Open(name)
	if err != nil {
		return nil, fmt.Errorf("gba: %s: %w", driverName, err)
	}
	return c, nil
}

// Err returns the first failure recorded by the bus, if it records failures at all.
func Err(b Bus) error {
	if e, ok := b.(interface{ Err() error }); ok {
		return e.Err()
	}
	return nil
}

// ReadBlock fills p from consecutive addresses starting at addr.
func ReadBlock(b Bus, addr uint32, p []byte) {
	if br, ok := b.(BlockReader); ok {
		br.ReadBlock(addr, p)
		return
	}
	for i := range p {
		p[i] = b.Read8(addr + uint32(i))
	}
}
