package video

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/moosethebrown/drone-net-bridge/metrics"
)

// Conn is a listener on the local video port.
type Conn interface {
	Receive(ctx context.Context, buf []byte) (int, error)
}

// Adapter delivers raw video stream datagrams. Payloads are opaque; no
// reassembly or decoding is attempted.
type Adapter struct {
	conn      Conn
	videoChan chan []byte
	logger    *zerolog.Logger
}

func NewAdapter(conn Conn, queueSize int, logger *zerolog.Logger) *Adapter {
	return &Adapter{
		conn:      conn,
		videoChan: make(chan []byte, queueSize),
		logger:    logger,
	}
}

// Payloads returns the stream of received datagrams. It is closed when Run returns.
func (a *Adapter) Payloads() <-chan []byte {
	return a.videoChan
}

func (a *Adapter) Run(ctx context.Context) error {
	a.logger.Info().Msg("starting")
	defer a.logger.Info().Msg("stopping")
	defer close(a.videoChan)

	buf := make([]byte, 4096)
	for {
		n, err := a.conn.Receive(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Error().Err(err).Msg("failed to receive video datagram")
			return err
		}
		metrics.VideoBytes.Add(float64(n))

		payload := make([]byte, n)
		copy(payload, buf[:n])
		select {
		case a.videoChan <- payload:
		default:
			metrics.VideoDropped.Inc()
		}
	}
}
