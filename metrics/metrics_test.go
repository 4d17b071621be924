package metrics

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	s := NewServer("127.0.0.1:0", &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Contains(t, buf.String(), "starting")
	assert.NotContains(t, buf.String(), "shutdown failed")
	assert.NotContains(t, buf.String(), "metrics server error")
}

func TestServerAddressInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	s := NewServer(taken.Addr().String(), &logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not give up on a taken address")
	}
	assert.Contains(t, buf.String(), "metrics server error")
}
