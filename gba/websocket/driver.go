package websocket

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"vfdump/gba"
	"vfdump/gba/link"
)

const driverName = "ws"

// Driver connects to a cartridge served over a websocket. The name is the ws:// URL.
type Driver struct{}

type client struct {
	urlstr string
	ws     net.Conn
}

func (d *Driver) Open(name string) (gba.Conn, error) {
	c := &client{urlstr: name}
	if err := c.Dial(); err != nil {
		return nil, err
	}
	return link.NewBus(c), nil
}

func (c *client) Dial() (err error) {
	log.Printf("ws: dial %s\n", c.urlstr)
	c.ws, _, _, err = ws.Dial(context.Background(), c.urlstr)
	if err != nil {
		err = fmt.Errorf("ws: dial: %w", err)
	}
	return
}

func (c *client) RoundTrip(req []byte) ([]byte, error) {
	if c.ws == nil {
		return nil, gba.ErrDeviceDisconnected
	}

	if err := wsutil.WriteClientBinary(c.ws, req); err != nil {
		c.Close()
		return nil, gba.NewTerminalError(fmt.Errorf("ws: send: %w", err))
	}

	for {
		rsp, op, err := wsutil.ReadServerData(c.ws)
		if err != nil {
			c.Close()
			return nil, gba.NewTerminalError(fmt.Errorf("ws: receive: %w", err))
		}
		if op == ws.OpBinary {
			return rsp, nil
		}
	}
}

func (c *client) Close() (err error) {
	if c.ws != nil {
		log.Printf("ws: close %s\n", c.urlstr)
		err = c.ws.Close()
	}
	c.ws = nil
	return
}

func init() {
	gba.Register(driverName, &Driver{})
}
