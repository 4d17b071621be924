// Package channel provides the UDP endpoints used to talk to the drone:
// a Channel bound to an ephemeral local port and paired with the drone's
// command port, and a Listener bound to a fixed local port for the state
// and video streams the drone pushes.
package channel

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/moosethebrown/drone-net-bridge/core"
)

const (
	DefaultDroneAddr = "192.168.10.1:8889"
	DefaultStateAddr = ":8890"
	DefaultVideoAddr = ":11111"
)

// Channel is a UDP socket connected to a single drone. It has one owner;
// Send may be used concurrently with Receive.
type Channel struct {
	conn *net.UDPConn
}

// Dial binds an ephemeral local port and fixes droneAddr as the peer.
func Dial(droneAddr string) (*Channel, error) {
	raddr, err := net.ResolveUDPAddr("udp", droneAddr)
	if err != nil {
		return nil, &core.TransportError{Op: "resolve", Err: err}
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, &core.TransportError{Op: "bind", Err: err}
	}
	return &Channel{conn: conn}, nil
}

func (c *Channel) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Channel) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send transmits one datagram. It does not wait for the drone's answer.
func (c *Channel) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.conn.Write(payload); err != nil {
		return &core.TransportError{Op: "send", Err: err}
	}
	return nil
}

// SendCommand encodes cmd and transmits it.
func (c *Channel) SendCommand(ctx context.Context, cmd core.Command) error {
	return c.Send(ctx, []byte(core.Encode(cmd)))
}

// Receive reads the next datagram into buf. A timeout of zero waits until a
// datagram arrives or ctx is done. When the timeout expires first the error
// is a core.ProtocolTimeout.
func (c *Channel) Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	return receive(ctx, c.conn, buf, timeout)
}

func (c *Channel) Close() error {
	return c.conn.Close()
}

// Listener receives datagrams pushed by the drone to a fixed local port.
type Listener struct {
	conn *net.UDPConn
}

func Listen(localAddr string) (*Listener, error) {
	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, &core.TransportError{Op: "resolve", Err: err}
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, &core.TransportError{Op: "bind", Err: err}
	}
	return &Listener{conn: conn}, nil
}

func (l *Listener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Receive blocks until the next datagram arrives or ctx is done.
func (l *Listener) Receive(ctx context.Context, buf []byte) (int, error) {
	return receive(ctx, l.conn, buf, 0)
}

func (l *Listener) Close() error {
	return l.conn.Close()
}

func receive(ctx context.Context, conn *net.UDPConn, buf []byte, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, &core.TransportError{Op: "receive", Err: err}
	}

	// unblock the read when ctx ends
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	n, err := conn.Read(buf)
	if err == nil {
		return n, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, core.ProtocolTimeout("no datagram within %s", timeout)
	}
	return 0, &core.TransportError{Op: "receive", Err: err}
}
