// Package liveness implements the probe loop that decides when the drone
// is reachable and commands can be trusted to arrive.
package liveness

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/moosethebrown/drone-net-bridge/core"
	"github.com/moosethebrown/drone-net-bridge/metrics"
)

const (
	DefaultProbeTimeout = 2 * time.Second
	DefaultBackoff      = 1 * time.Second
	DefaultPayload      = "ping"
)

// Prober is the part of the command channel the handshake needs.
type Prober interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error)
}

type State int

const (
	Unreachable State = iota
	Reachable
)

func (s State) String() string {
	if s == Reachable {
		return "reachable"
	}
	return "unreachable"
}

type EventKind int

const (
	EventSent EventKind = iota
	EventSendFailed
	EventTimedOut
	EventReceiveFailed
	EventReceived
)

func (k EventKind) String() string {
	switch k {
	case EventSent:
		return "sent"
	case EventSendFailed:
		return "send-failed"
	case EventTimedOut:
		return "timed-out"
	case EventReceiveFailed:
		return "receive-failed"
	case EventReceived:
		return "received"
	}
	return "unknown"
}

// Event describes one step of a probe attempt.
type Event struct {
	Attempt int
	Kind    EventKind
	Payload []byte // EventReceived only
	Err     error
}

// Config of a Handshake. MaxAttempts bounds the number of probes, zero
// probes forever. Zero durations take the defaults.
type Config struct {
	ProbeTimeout time.Duration
	Backoff      time.Duration
	MaxAttempts  int
	Payload      []byte
}

func DefaultConfig() Config {
	return Config{
		ProbeTimeout: DefaultProbeTimeout,
		Backoff:      DefaultBackoff,
		Payload:      []byte(DefaultPayload),
	}
}

// Handshake moves from Unreachable to Reachable once the drone answers a
// probe. It is single use.
type Handshake struct {
	prober  Prober
	cfg     Config
	logger  *zerolog.Logger
	onEvent func(Event)
	state   State
	buf     []byte
}

func NewHandshake(prober Prober, cfg Config, logger *zerolog.Logger) *Handshake {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if len(cfg.Payload) == 0 {
		cfg.Payload = []byte(DefaultPayload)
	}
	return &Handshake{
		prober: prober,
		cfg:    cfg,
		logger: logger,
		buf:    make([]byte, 1024),
	}
}

// OnEvent registers fn to observe every probe step. Call before Run.
func (h *Handshake) OnEvent(fn func(Event)) {
	h.onEvent = fn
}

func (h *Handshake) State() State {
	return h.state
}

// Run probes until the drone answers, ctx is done or MaxAttempts probes
// went unanswered. Timeouts and receive errors are logged and retried.
func (h *Handshake) Run(ctx context.Context) error {
	for attempt := 1; h.cfg.MaxAttempts == 0 || attempt <= h.cfg.MaxAttempts; attempt++ {
		if h.probe(ctx, attempt) {
			h.state = Reachable
			h.logger.Info().Int("attempt", attempt).Msg("drone reachable")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-time.After(h.cfg.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return core.ProtocolTimeout("no answer to %d probes", h.cfg.MaxAttempts)
}

func (h *Handshake) probe(ctx context.Context, attempt int) bool {
	if err := h.prober.Send(ctx, h.cfg.Payload); err != nil {
		h.emit(Event{Attempt: attempt, Kind: EventSendFailed, Err: err})
	} else {
		h.emit(Event{Attempt: attempt, Kind: EventSent})
	}

	n, err := h.prober.Receive(ctx, h.buf, h.cfg.ProbeTimeout)
	switch {
	case err == nil:
		payload := make([]byte, n)
		copy(payload, h.buf[:n])
		h.emit(Event{Attempt: attempt, Kind: EventReceived, Payload: payload})
		return true
	case ctx.Err() != nil:
		return false
	case core.IsProtocolTimeout(err):
		h.emit(Event{Attempt: attempt, Kind: EventTimedOut, Err: err})
	default:
		h.emit(Event{Attempt: attempt, Kind: EventReceiveFailed, Err: err})
	}
	return false
}

func (h *Handshake) emit(ev Event) {
	metrics.ProbeEvents.WithLabelValues(ev.Kind.String()).Inc()

	var e *zerolog.Event
	switch ev.Kind {
	case EventSent:
		e = h.logger.Debug()
	case EventReceived:
		e = h.logger.Info().Str("response", string(ev.Payload))
	default:
		e = h.logger.Warn().Err(ev.Err)
	}
	e.Int("attempt", ev.Attempt).Msgf("probe %s", ev.Kind)

	if h.onEvent != nil {
		h.onEvent(ev)
	}
}
