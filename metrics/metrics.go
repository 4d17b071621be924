package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ProbeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drone_probe_events_total",
		Help: "Liveness probe steps by outcome (sent, send-failed, timed-out, receive-failed, received).",
	}, []string{"event"})
	CommandsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drone_commands_sent_total",
		Help: "Total commands transmitted to the drone command port.",
	})
	CommandSendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drone_command_send_failures_total",
		Help: "Total commands that could not be transmitted.",
	})
	CommandResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drone_command_responses_total",
		Help: "Responses read from the command port by result (ok, error).",
	}, []string{"result"})
	StateFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drone_state_frames_total",
		Help: "Total state frames received.",
	})
	StateFramesEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drone_state_frames_empty_total",
		Help: "State frames that yielded no fields.",
	})
	VideoBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drone_video_bytes_total",
		Help: "Total video stream bytes received.",
	})
	VideoDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drone_video_dropped_total",
		Help: "Video datagrams dropped because the consumer fell behind.",
	})
)

type Server struct {
	srv    *http.Server
	logger *zerolog.Logger
}

func NewServer(addr string, logger *zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done and the server has shut down.
func (s *Server) Run(ctx context.Context) {
	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutCtx); err != nil {
			s.logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.srv.Addr).Msg("starting")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error().Err(err).Msg("metrics server error")
		return
	}
	<-shutdown
}
