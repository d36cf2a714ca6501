package gba

import (
	"errors"
	"reflect"
	"testing"
)

type nopDriver struct {
	err error
}

func (d *nopDriver) Open(name string) (Conn, error) {
	return nil, d.err
}

func TestRegister(t *testing.T) {
	defer unregisterAllDrivers()
	unregisterAllDrivers()

	Register("b", &nopDriver{})
	Register("a", &nopDriver{})

	if got := Drivers(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Drivers() = %v", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("a", &nopDriver{})
}

func TestOpen(t *testing.T) {
	defer unregisterAllDrivers()
	unregisterAllDrivers()

	if _, err := Open("missing", ""); err == nil {
		t.Fatal("expected unknown driver error")
	}

	Register("broken", &nopDriver{err: ErrDeviceDisconnected})
	_, err := Open("broken", "x")
	if !errors.Is(err, ErrDeviceDisconnected) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestTerminalError(t *testing.T) {
	cause := errors.New("port gone")
	err := error(NewTerminalError(cause))
	if !errors.Is(err, ErrDeviceDisconnected) {
		t.Fatal("terminal error should be a disconnection")
	}
	if !errors.Is(err, cause) {
		t.Fatal("terminal error should unwrap to its cause")
	}
	if err.Error() != "gba device terminal error: port gone" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestReadBlockFallback(t *testing.T) {
	b := &flatBus{mem: map[uint32]byte{0x10: 1, 0x11: 2, 0x12: 3}}
	p := make([]byte, 3)
	ReadBlock(b, 0x10, p)
	if !reflect.DeepEqual(p, []byte{1, 2, 3}) {
		t.Fatalf("got % x", p)
	}
	if Err(b) != nil {
		t.Fatal("unexpected error")
	}
}
