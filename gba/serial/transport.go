package serial

import (
	"fmt"
	"log"

	"vfdump/gba"
	"vfdump/gba/link"
)

// transport moves link frames over the serial line. Any I/O failure leaves the line out of sync
// and is terminal.
type transport struct {
	f    port
	name string
}

func sendSerial(f port, buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, e := f.Write(buf[sent:])
		if e != nil {
			return e
		}
		sent += n
	}
	return nil
}

func recvSerial(f port, rsp []byte, expected int) error {
	o := 0
	for o < expected {
		n, err := f.Read(rsp[o:expected])
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("recvSerial: Read returned %d", n)
		}
		o += n
	}
	return nil
}

func (t *transport) RoundTrip(req []byte) ([]byte, error) {
	if err := sendSerial(t.f, link.EncodeFrame(req)); err != nil {
		return nil, gba.NewTerminalError(fmt.Errorf("serial: %s: send: %w", t.name, err))
	}

	hdr := make([]byte, link.FrameHeaderSize)
	if err := recvSerial(t.f, hdr, len(hdr)); err != nil {
		return nil, gba.NewTerminalError(fmt.Errorf("serial: %s: receive: %w", t.name, err))
	}
	n, err := link.FrameLength(hdr)
	if err != nil {
		return nil, gba.NewTerminalError(fmt.Errorf("serial: %s: %w", t.name, err))
	}

	rsp := make([]byte, n)
	if err = recvSerial(t.f, rsp, n); err != nil {
		return nil, gba.NewTerminalError(fmt.Errorf("serial: %s: receive: %w", t.name, err))
	}
	return rsp, nil
}

func (t *transport) Close() (err error) {
	// Clear DTR (ignore any errors since we're closing):
	log.Printf("serial: %s: clear DTR\n", t.name)
	t.f.SetDTR(false)

	err = t.f.Close()
	if err != nil {
		return fmt.Errorf("serial: could not close %s: %w", t.name, err)
	}
	return
}
