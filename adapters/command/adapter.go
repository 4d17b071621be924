package command

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/moosethebrown/drone-net-bridge/core"
	"github.com/moosethebrown/drone-net-bridge/liveness"
	"github.com/moosethebrown/drone-net-bridge/metrics"
)

// Conn is the command channel as seen by the adapter.
type Conn interface {
	liveness.Prober
	SendCommand(ctx context.Context, cmd core.Command) error
}

// ErrQueueFull is reported as the outcome of a command dropped before it was sent.
var ErrQueueFull = errors.New("command queue full")

// OutcomeHandler receives every response read from the command port, and a
// failed outcome for every command that could not be sent.
type OutcomeHandler interface {
	HandleOutcome(core.Outcome)
}

// Adapter owns the command channel: it waits for the drone to answer the
// liveness probe, then forwards queued commands and reports responses.
// Responses are not correlated with commands, the protocol carries no ids.
type Adapter struct {
	conn          Conn
	handler       OutcomeHandler
	handshakeCfg  liveness.Config
	enterSDKMode  bool
	rqChan        chan core.Command
	reachableChan chan struct{}
	respBuf       []byte
	logger        *zerolog.Logger
}

func NewAdapter(conn Conn, handler OutcomeHandler, handshakeCfg liveness.Config,
	enterSDKMode bool, queueSize int, logger *zerolog.Logger) *Adapter {
	return &Adapter{
		conn:          conn,
		handler:       handler,
		handshakeCfg:  handshakeCfg,
		enterSDKMode:  enterSDKMode,
		rqChan:        make(chan core.Command, queueSize),
		reachableChan: make(chan struct{}),
		respBuf:       make([]byte, 1024),
		logger:        logger,
	}
}

// Run blocks until ctx is done or the handshake gives up.
func (a *Adapter) Run(ctx context.Context) error {
	a.logger.Info().Msg("starting")
	defer a.logger.Info().Msg("stopping")

	hs := liveness.NewHandshake(a.conn, a.handshakeCfg, a.logger)
	if err := hs.Run(ctx); err != nil {
		if ctx.Err() == nil {
			a.logger.Error().Err(err).Msg("handshake failed")
		}
		return err
	}
	close(a.reachableChan)

	if a.enterSDKMode {
		a.send(ctx, core.EnterCommandMode)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.receiveLoop(ctx)
	}()

main_loop:
	for {
		select {
		case cmd := <-a.rqChan:
			a.send(ctx, cmd)
		case <-ctx.Done():
			break main_loop
		}
	}

	<-done
	return nil
}

// SendCommand queues cmd for transmission once the drone is reachable.
// A dropped command is reported to the handler as a failed outcome.
func (a *Adapter) SendCommand(cmd core.Command) {
	select {
	case a.rqChan <- cmd:
	default:
		a.logger.Error().Str("cmd", core.Encode(cmd)).Msg("command queue full, dropping command")
		metrics.CommandSendFailures.Inc()
		// the caller may be the loop draining the handler's queue
		go a.handler.HandleOutcome(core.Outcome{Err: errors.Annotate(ErrQueueFull, core.Encode(cmd))})
	}
}

// Reachable is closed once the handshake succeeded.
func (a *Adapter) Reachable() <-chan struct{} {
	return a.reachableChan
}

func (a *Adapter) send(ctx context.Context, cmd core.Command) {
	err := a.conn.SendCommand(ctx, cmd)
	if err != nil {
		metrics.CommandSendFailures.Inc()
		a.logger.Error().Err(err).Str("cmd", core.Encode(cmd)).Msg("failed to send command")
		a.handler.HandleOutcome(core.Outcome{Err: err})
		return
	}
	metrics.CommandsSent.Inc()
	a.logger.Debug().Str("cmd", core.Encode(cmd)).Msg("command sent")
}

func (a *Adapter) receiveLoop(ctx context.Context) {
	for {
		n, err := a.conn.Receive(ctx, a.respBuf, 0)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Error().Err(err).Msg("failed to read response")
			// avoid spinning on a socket that keeps failing, e.g. ICMP unreachable
			select {
			case <-time.After(100 * time.Millisecond):
			case <-ctx.Done():
				return
			}
			continue
		}

		o := core.ParseOutcome(a.respBuf[:n])
		if o.OK() {
			metrics.CommandResponses.WithLabelValues("ok").Inc()
		} else {
			metrics.CommandResponses.WithLabelValues("error").Inc()
		}
		a.handler.HandleOutcome(o)
	}
}
