package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/moosethebrown/drone-net-bridge/adapters/command"
	"github.com/moosethebrown/drone-net-bridge/adapters/mqtt"
	"github.com/moosethebrown/drone-net-bridge/adapters/state"
	"github.com/moosethebrown/drone-net-bridge/adapters/video"
	"github.com/moosethebrown/drone-net-bridge/channel"
	"github.com/moosethebrown/drone-net-bridge/config"
	"github.com/moosethebrown/drone-net-bridge/core"
	"github.com/moosethebrown/drone-net-bridge/liveness"
	"github.com/moosethebrown/drone-net-bridge/metrics"
)

type App struct {
	cfg            *config.Config
	logger         *zerolog.Logger
	theCore        *core.Core
	commandChannel *channel.Channel
	commandAdapter *command.Adapter
	stateListener  *channel.Listener
	stateAdapter   *state.Adapter
	videoListener  *channel.Listener
	videoAdapter   *video.Adapter
	mqttAdapter    *mqtt.Adapter
	metricsServer  *metrics.Server
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg: cfg,
	}

	logLevel, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Invalid logLevel: %s, error: %s", cfg.LogLevel, err.Error())
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(logLevel)
	app.logger = &logger

	if err := app.init(); err != nil {
		app.closeSockets()
		return nil, err
	}

	return app, nil
}

func (app *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.run(func() { app.theCore.Run(ctx) })

	app.run(func() {
		if err := app.commandAdapter.Run(ctx); err != nil && ctx.Err() == nil {
			app.logger.Error().Err(err).Msg("command adapter exited, stopping")
			cancel()
		}
	})

	app.run(func() {
		if err := app.stateAdapter.Run(ctx); err != nil && ctx.Err() == nil {
			app.logger.Error().Err(err).Msg("state adapter exited, stopping")
			cancel()
		}
	})

	if app.videoAdapter != nil {
		app.run(func() {
			if err := app.videoAdapter.Run(ctx); err != nil {
				app.logger.Error().Err(err).Msg("video adapter exited")
			}
		})
		app.run(app.drainVideo)
	}

	if app.mqttAdapter != nil {
		app.run(func() {
			if err := app.mqttAdapter.Run(ctx); err != nil {
				app.logger.Error().Err(err).Msg("mqtt adapter exited, stopping")
				cancel()
			}
		})
	}

	if app.metricsServer != nil {
		app.run(func() { app.metricsServer.Run(ctx) })
	}
}

// Done is closed when every component has stopped.
func (app *App) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	return done
}

func (app *App) Stop() {
	if app.cancel != nil {
		app.cancel()
	}
	app.wg.Wait()
	app.closeSockets()
}

func (app *App) run(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		fn()
	}()
}

func (app *App) init() error {
	coreLogger := app.logger.With().Str("component", "core").Logger()
	app.theCore = core.NewCore(nil, logUplink{logger: &coreLogger}, app.cfg.AnnounceInterval, &coreLogger)

	var err error
	app.commandChannel, err = channel.Dial(app.cfg.Drone.Address)
	if err != nil {
		return errors.Annotate(err, "command channel")
	}
	commandLogger := app.logger.With().Str("component", "command").
		Str("drone", app.cfg.Drone.Address).Logger()
	app.commandAdapter = command.NewAdapter(app.commandChannel,
		app.theCore,
		liveness.Config{
			ProbeTimeout: time.Duration(app.cfg.Drone.ProbeTimeout) * time.Millisecond,
			Backoff:      time.Duration(app.cfg.Drone.ProbeBackoff) * time.Millisecond,
			MaxAttempts:  app.cfg.Drone.MaxProbes,
			Payload:      []byte(liveness.DefaultPayload),
		},
		*app.cfg.Drone.EnterSdkMode,
		app.cfg.Drone.QueueSize,
		&commandLogger)
	app.theCore.SetCommandSender(app.commandAdapter)

	app.stateListener, err = channel.Listen(app.cfg.Drone.StateAddr)
	if err != nil {
		return errors.Annotate(err, "state listener")
	}
	stateLogger := app.logger.With().Str("component", "state").Logger()
	app.stateAdapter = state.NewAdapter(app.stateListener, app.theCore, &stateLogger)

	if app.cfg.Video.Enabled {
		app.videoListener, err = channel.Listen(app.cfg.Video.Addr)
		if err != nil {
			return errors.Annotate(err, "video listener")
		}
		videoLogger := app.logger.With().Str("component", "video").Logger()
		app.videoAdapter = video.NewAdapter(app.videoListener, app.cfg.Video.QueueSize, &videoLogger)
	}

	if app.cfg.Mqtt != nil {
		mqttLogger := app.logger.With().Str("component", "mqtt").Logger()
		app.mqttAdapter = mqtt.NewAdapter(mqtt.Options{
			Broker:            app.cfg.Mqtt.Broker,
			ConnTimeout:       time.Duration(app.cfg.Mqtt.ConnTimeout) * time.Millisecond,
			Username:          app.cfg.Mqtt.Username,
			Password:          app.cfg.Mqtt.Password,
			ClientID:          app.cfg.Mqtt.ClientId,
			DroneID:           app.cfg.Mqtt.DroneId,
			AnnounceTopic:     app.cfg.Mqtt.AnnounceTopic,
			AnnounceTimeout:   time.Duration(app.cfg.Mqtt.AnnounceTimeout) * time.Millisecond,
			DisconnectTimeout: time.Duration(app.cfg.Mqtt.DisconnectTimeout) * time.Millisecond,
			CertCheck:         app.cfg.Mqtt.CertCheck,
		}, app.theCore, &mqttLogger)
		app.theCore.SetUplink(app.mqttAdapter)
	}

	if app.cfg.MetricsAddr != "" {
		metricsLogger := app.logger.With().Str("component", "metrics").Logger()
		app.metricsServer = metrics.NewServer(app.cfg.MetricsAddr, &metricsLogger)
	}

	return nil
}

func (app *App) drainVideo() {
	var sink io.Writer = io.Discard
	if app.cfg.Video.DumpFile != "" {
		f, err := os.OpenFile(app.cfg.Video.DumpFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			app.logger.Error().Err(err).Str("file", app.cfg.Video.DumpFile).Msg("failed to open video dump file")
		} else {
			defer f.Close()
			sink = f
		}
	}

	for payload := range app.videoAdapter.Payloads() {
		if _, err := sink.Write(payload); err != nil {
			app.logger.Error().Err(err).Msg("failed to write video payload")
			sink = io.Discard
		}
	}
}

func (app *App) closeSockets() {
	if app.commandChannel != nil {
		app.commandChannel.Close()
	}
	if app.stateListener != nil {
		app.stateListener.Close()
	}
	if app.videoListener != nil {
		app.videoListener.Close()
	}
}

// logUplink stands in for MQTT when no broker is configured.
type logUplink struct {
	logger *zerolog.Logger
}

func (u logUplink) PublishReading(r core.Reading) {
	u.logger.Debug().Fields(anyFields(r.Fields())).Msg("state")
}

func (u logUplink) PublishResponse(resp core.Response) {
	u.logger.Info().Bool("ok", resp.OK).Str("value", resp.Value).Str("message", resp.Message).Msg("response")
}

func (u logUplink) Announce() {}

func anyFields(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
