package serial

import (
	"errors"
	"net"
	"reflect"
	"testing"

	"vfdump/gba"
	"vfdump/gba/emulator"
	"vfdump/gba/emulator/backup"
	"vfdump/gba/link"
)

// pipePort is one end of an in-memory serial line.
type pipePort struct {
	net.Conn
	dtr bool
}

func (p *pipePort) SetDTR(dtr bool) error {
	p.dtr = dtr
	return nil
}

func serveEmulator(t *testing.T, q *emulator.System) *pipePort {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		if err := link.NewServer(q).ServeStream(server); err != nil {
			t.Errorf("ServeStream: %v", err)
		}
	}()
	return &pipePort{Conn: client}
}

func TestOpen_BaudFallback(t *testing.T) {
	q := emulator.New([]byte{0x2E, 0x00, 0x00, 0xEA}, backup.NewSRAM())
	p := serveEmulator(t, q)

	var tried []int
	saved := openPort
	defer func() { openPort = saved }()
	openPort = func(name string, baud int) (port, error) {
		if name != "COM9" {
			t.Errorf("port name = %q", name)
		}
		tried = append(tried, baud)
		if baud > 115200 {
			return nil, errors.New("unsupported baud rate")
		}
		return p, nil
	}

	conn, err := gba.Open(driverName, "COM9;230400")
	if err != nil {
		t.Fatal(err)
	}
	if actual, expected := tried, []int{230400, 153600, 128000, 115200}; !reflect.DeepEqual(actual, expected) {
		t.Fatalf("actual = %v, expected = %v", actual, expected)
	}
	if !p.dtr {
		t.Fatal("DTR should be set on open")
	}

	if actual, expected := conn.Read32(gba.ROMStart), uint32(0xEA00002E); actual != expected {
		t.Fatalf("actual = %08x, expected = %08x", actual, expected)
	}
	conn.Write8(gba.BackupStart, 0x42)
	if err = conn.Close(); err != nil {
		t.Fatal(err)
	}
	if p.dtr {
		t.Fatal("DTR should be cleared on close")
	}
	if actual := q.Backup.Bytes()[0]; actual != 0x42 {
		t.Fatalf("queued write not flushed on close, got %02x", actual)
	}
}

func TestOpen_NoBaudRate(t *testing.T) {
	saved := openPort
	defer func() { openPort = saved }()
	openPort = func(name string, baud int) (port, error) {
		return nil, errors.New("busy")
	}

	if _, err := gba.Open(driverName, "COM9"); err == nil {
		t.Fatal("expected error")
	}
}

func TestTransport_Disconnect(t *testing.T) {
	client, server := net.Pipe()
	server.Close()

	b := link.NewBus(&transport{f: &pipePort{Conn: client}, name: "test"})
	b.Read8(gba.IWRAMStart)
	if !errors.Is(b.Err(), gba.ErrDeviceDisconnected) {
		t.Fatalf("expected ErrDeviceDisconnected, got %v", b.Err())
	}
}
