package liveness

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moosethebrown/drone-net-bridge/core"
)

// fakePeer answers the probe with the given number, 0 never answers.
type fakePeer struct {
	mu       sync.Mutex
	answerAt int
	recvErr  error
	sendErr  error
	probes   int
	sentAt   []time.Time
}

func (p *fakePeer) Send(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	p.sentAt = append(p.sentAt, time.Now())
	return p.sendErr
}

func (p *fakePeer) Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()
	answer := p.answerAt != 0 && p.probes == p.answerAt
	recvErr := p.recvErr
	p.mu.Unlock()

	if answer {
		return copy(buf, "ok"), nil
	}
	if recvErr != nil {
		return 0, recvErr
	}
	select {
	case <-time.After(timeout):
		return 0, core.ProtocolTimeout("no datagram within %s", timeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	return &logger
}

func testConfig() Config {
	return Config{
		ProbeTimeout: 40 * time.Millisecond,
		Backoff:      20 * time.Millisecond,
	}
}

func TestHandshakeReachableOnThirdProbe(t *testing.T) {
	peer := &fakePeer{answerAt: 3}
	hs := NewHandshake(peer, testConfig(), testLogger())

	var events []Event
	hs.OnEvent(func(ev Event) { events = append(events, ev) })

	assert.Equal(t, Unreachable, hs.State())
	require.NoError(t, hs.Run(context.Background()))
	assert.Equal(t, Reachable, hs.State())
	assert.Equal(t, 3, peer.count())

	kinds := make([]EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{
		EventSent, EventTimedOut,
		EventSent, EventTimedOut,
		EventSent, EventReceived,
	}, kinds)
	last := events[len(events)-1]
	assert.Equal(t, 3, last.Attempt)
	assert.Equal(t, []byte("ok"), last.Payload)

	// no further probes once reachable
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 3, peer.count())
}

func TestHandshakeCadenceWithSilentPeer(t *testing.T) {
	peer := &fakePeer{}
	cfg := testConfig()
	hs := NewHandshake(peer, cfg, testLogger())

	cycle := cfg.ProbeTimeout + cfg.Backoff
	// 4 full cycles plus part of the fifth probe wait
	ctx, cancel := context.WithTimeout(context.Background(), 4*cycle+cfg.ProbeTimeout/2)
	defer cancel()

	err := hs.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Unreachable, hs.State())

	n := peer.count()
	assert.GreaterOrEqual(t, n, 4)
	assert.LessOrEqual(t, n, 5)

	peer.mu.Lock()
	defer peer.mu.Unlock()
	for i := 1; i < len(peer.sentAt); i++ {
		gap := peer.sentAt[i].Sub(peer.sentAt[i-1])
		assert.GreaterOrEqual(t, gap, cycle, "gap between probe %d and %d", i, i+1)
	}
}

func TestHandshakeMaxAttempts(t *testing.T) {
	peer := &fakePeer{}
	cfg := testConfig()
	cfg.MaxAttempts = 3
	hs := NewHandshake(peer, cfg, testLogger())

	err := hs.Run(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsProtocolTimeout(err), "got %v", err)
	assert.Equal(t, 3, peer.count())
	assert.Equal(t, Unreachable, hs.State())
}

func TestHandshakeRetriesOnFailures(t *testing.T) {
	peer := &fakePeer{
		sendErr: &core.TransportError{Op: "send", Err: errors.New("network is unreachable")},
		recvErr: &core.TransportError{Op: "receive", Err: errors.New("connection refused")},
	}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	hs := NewHandshake(peer, cfg, testLogger())

	var kinds []EventKind
	hs.OnEvent(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventReceiveFailed {
			assert.True(t, core.IsTransportError(ev.Err))
		}
	})

	err := hs.Run(context.Background())
	assert.True(t, core.IsProtocolTimeout(err), "got %v", err)
	assert.Equal(t, []EventKind{
		EventSendFailed, EventReceiveFailed,
		EventSendFailed, EventReceiveFailed,
	}, kinds)
}

func TestHandshakeCancelledDuringBackoff(t *testing.T) {
	peer := &fakePeer{}
	cfg := Config{ProbeTimeout: 10 * time.Millisecond, Backoff: time.Hour}
	hs := NewHandshake(peer, cfg, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := hs.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, peer.count())
}

func TestNewHandshakeDefaults(t *testing.T) {
	hs := NewHandshake(&fakePeer{}, Config{}, testLogger())
	assert.Equal(t, DefaultProbeTimeout, hs.cfg.ProbeTimeout)
	assert.Equal(t, []byte(DefaultPayload), hs.cfg.Payload)
	assert.Equal(t, DefaultBackoff, hs.cfg.Backoff)

	d := DefaultConfig()
	assert.Equal(t, 2*time.Second, d.ProbeTimeout)
	assert.Equal(t, time.Second, d.Backoff)
	assert.Equal(t, 0, d.MaxAttempts)
}
