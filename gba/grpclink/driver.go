package grpclink

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"vfdump/gba"
	"vfdump/gba/link"
)

const driverName = "grpc"

// RequestTimeout bounds a single round trip.
var RequestTimeout = 10 * time.Second

// Driver connects to a cartridge served over gRPC. The name is the "host:port" target.
type Driver struct {
	// extra dial options, for tests
	opts []grpc.DialOption
}

type client struct {
	cc *grpc.ClientConn
}

func (d *Driver) Open(name string) (gba.Conn, error) {
	opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, d.opts...)
	cc, err := grpc.Dial(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc: dial %s: %w", name, err)
	}
	log.Printf("grpc: connected to %s\n", name)
	return link.NewBus(&client{cc: cc}), nil
}

func (c *client) RoundTrip(req []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()

	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, execMethod, wrapperspb.Bytes(req), out)
	if err != nil {
		if status.Code(err) == codes.Unavailable {
			return nil, gba.NewTerminalError(fmt.Errorf("grpc: exec: %w", err))
		}
		return nil, fmt.Errorf("grpc: exec: %w", err)
	}
	return out.GetValue(), nil
}

func (c *client) Close() error {
	return c.cc.Close()
}

func init() {
	gba.Register(driverName, &Driver{})
}
