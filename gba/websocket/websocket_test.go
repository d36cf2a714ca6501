package websocket

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gobwas/ws"

	"vfdump/gba"
	"vfdump/gba/emulator"
	"vfdump/gba/emulator/backup"
	"vfdump/save"
	"vfdump/util"
)

func TestDriver_FlashOverWebsocket(t *testing.T) {
	rom := make([]byte, 0x400)
	copy(rom[0x100:], "FLASH1M_V103")
	chip := backup.NewFlash128K()
	chip.BusyReads = 1

	srv := httptest.NewServer(Handler(emulator.New(rom, chip)))
	defer srv.Close()

	conn, err := gba.Open(driverName, "ws://"+strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	s := save.New(conn, save.WithLogger(util.NewTestingLogger(t)))
	tech, err := save.Detect(s)
	if err != nil {
		t.Fatal(err)
	}
	if tech.Kind != save.Flash128K {
		t.Fatalf("actual = %v, expected = %v", tech.Kind, save.Flash128K)
	}

	m, d, err := s.FlashID()
	if err != nil {
		t.Fatal(err)
	}
	if m != backup.SanyoID || d != backup.Sanyo128K {
		t.Fatalf("id = %02x:%02x", m, d)
	}

	if err = chip.Load(bytes.Repeat([]byte{0x3C}, backup.Flash128KSize)); err != nil {
		t.Fatal(err)
	}
	data := make([]byte, tech.Size)
	if err = tech.Get(s, data); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, chip.Bytes()) {
		t.Fatal("save read over websocket differs from the chip")
	}
}

func TestDriver_ServerGone(t *testing.T) {
	// upgrades and hangs up straight away
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		if conn, _, _, err := ws.UpgradeHTTP(req, rw); err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	conn, err := gba.Open(driverName, "ws://"+strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}

	conn.Read8(gba.IWRAMStart)
	if !errors.Is(gba.Err(conn), gba.ErrDeviceDisconnected) {
		t.Fatalf("expected ErrDeviceDisconnected, got %v", gba.Err(conn))
	}
}

func TestDriver_DialFails(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	if _, err := gba.Open(driverName, "ws://"+addr); err == nil {
		t.Fatal("expected dial error")
	}
}
