package serial

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"vfdump/gba"
	"vfdump/gba/link"
)

const driverName = "serial"

// Driver talks to a cartridge adapter on a USB serial port. The name is "port[;baud]"; an empty
// port picks the first USB serial port found.
type Driver struct{}

// port is the part of serial.Port the link needs.
type port interface {
	io.ReadWriteCloser
	SetDTR(dtr bool) error
}

var (
	ErrNoAdapterFound = errors.New("serial: no adapter found among serial ports")
	baudRates         = []int{
		921600, // first rate that works on Windows
		460800,
		256000,
		230400, // first rate that works on MacOS
		153600,
		128000,
		115200,
		76800,
		57600,
		38400,
		28800,
		19200,
		14400,
		9600,
	}
)

var openPort = func(name string, baud int) (port, error) {
	return serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// DetectDevice returns the name of the first USB serial port.
func DetectDevice() (portName string, err error) {
	var ports []*enumerator.PortDetails

	ports, err = enumerator.GetDetailedPortsList()
	if err != nil {
		return
	}

	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		log.Printf("serial: found USB port %s (%s:%s)\n", p.Name, p.VID, p.PID)
		if portName == "" {
			portName = p.Name
		}
	}

	if portName == "" {
		err = ErrNoAdapterFound
	}
	return
}

func (d *Driver) Open(name string) (gba.Conn, error) {
	var err error

	parts := strings.Split(name, ";")

	portName := parts[0]
	if portName == "" {
		portName, err = DetectDevice()
		if err != nil {
			return nil, err
		}
	}

	baudRequest := baudRates[0]
	if len(parts) > 1 {
		if n, e := strconv.Atoi(parts[1]); e == nil {
			baudRequest = n
		}
	}

	// Try all the common baud rates in descending order:
	var f port
	baud := 0
	for _, baud = range baudRates {
		if baud > baudRequest {
			continue
		}

		f, err = openPort(portName, baud)
		if err == nil {
			break
		}
	}
	if f == nil {
		return nil, fmt.Errorf("serial: failed to open %s at any baud rate: %w", portName, err)
	}

	if err = f.SetDTR(true); err != nil {
		f.Close()
		return nil, fmt.Errorf("serial: failed to set DTR: %w", err)
	}

	log.Printf("serial: opened %s at %d baud\n", portName, baud)
	return link.NewBus(&transport{f: f, name: portName}), nil
}

func init() {
	gba.Register(driverName, &Driver{})
}
