package state

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/moosethebrown/drone-net-bridge/core"
	"github.com/moosethebrown/drone-net-bridge/metrics"
)

// Conn is a listener on the local state port.
type Conn interface {
	Receive(ctx context.Context, buf []byte) (int, error)
}

type ReadingHandler interface {
	HandleReading(core.Reading)
}

// Adapter turns state frames pushed by the drone into Readings.
type Adapter struct {
	conn    Conn
	handler ReadingHandler
	buf     []byte
	logger  *zerolog.Logger
}

func NewAdapter(conn Conn, handler ReadingHandler, logger *zerolog.Logger) *Adapter {
	return &Adapter{
		conn:    conn,
		handler: handler,
		buf:     make([]byte, 1024),
		logger:  logger,
	}
}

// Run receives frames until ctx is done. There is no receive timeout: the
// drone only sends state while it is powered and in SDK mode.
func (a *Adapter) Run(ctx context.Context) error {
	a.logger.Info().Msg("starting")
	defer a.logger.Info().Msg("stopping")

	for {
		n, err := a.conn.Receive(ctx, a.buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Error().Err(err).Msg("failed to receive state frame")
			return err
		}

		metrics.StateFrames.Inc()
		r := core.ParseReading(a.buf[:n])
		if r.Len() == 0 {
			metrics.StateFramesEmpty.Inc()
			a.logger.Warn().Int("size", n).Msg("state frame without fields")
		}
		a.logger.Trace().Bytes("frame", a.buf[:n]).Msg("state frame")
		a.handler.HandleReading(r)
	}
}
