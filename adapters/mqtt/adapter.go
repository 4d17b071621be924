package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moosethebrown/drone-net-bridge/core"
)

type RequestHandler interface {
	HandleRequest([]byte)
}

type Options struct {
	Broker            string
	ConnTimeout       time.Duration
	Username          string
	Password          string
	ClientID          string
	DroneID           string
	AnnounceTopic     string
	AnnounceTimeout   time.Duration
	DisconnectTimeout time.Duration
	CertCheck         bool
}

type Adapter struct {
	opts         Options
	rqTopic      string
	respTopic    string
	stateTopic   string
	client       mqtt.Client
	handler      RequestHandler
	announceChan chan bool
	responseChan chan []byte
	stateChan    chan []byte
	logger       *zerolog.Logger
}

func NewAdapter(opts Options, handler RequestHandler, logger *zerolog.Logger) *Adapter {
	if opts.ClientID == "" {
		opts.ClientID = "drone-net-bridge-" + uuid.NewString()
	}
	return &Adapter{
		opts:         opts,
		rqTopic:      RequestTopic(opts.DroneID),
		respTopic:    ResponseTopic(opts.DroneID),
		stateTopic:   StateTopic(opts.DroneID),
		handler:      handler,
		announceChan: make(chan bool, 1),
		responseChan: make(chan []byte, 1000),
		stateChan:    make(chan []byte, 1),
		logger:       logger,
	}
}

func RequestTopic(droneID string) string {
	return fmt.Sprintf("drone/%s/request", droneID)
}

func ResponseTopic(droneID string) string {
	return fmt.Sprintf("drone/%s/response", droneID)
}

func StateTopic(droneID string) string {
	return fmt.Sprintf("drone/%s/state", droneID)
}

func (a *Adapter) ClientID() string {
	return a.opts.ClientID
}

func (a *Adapter) Run(ctx context.Context) error {
	a.logger.Info().Msg("starting")
	defer a.logger.Info().Msg("stopping")

	err := a.connect()
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to connect to MQTT broker")
		return err
	}

	defer a.client.Disconnect(uint(a.opts.DisconnectTimeout.Milliseconds()))

main_loop:
	for {
		select {
		case <-ctx.Done():
			break main_loop
		case <-a.announceChan:
			a.logger.Debug().Msg("announce")

			token := a.client.Publish(a.opts.AnnounceTopic, 1, false, a.opts.DroneID)
			if !token.WaitTimeout(a.opts.AnnounceTimeout) {
				a.logger.Error().Msg("timeout expired while publishing announce message")
			} else if err := token.Error(); err != nil {
				a.logger.Error().Err(err).Msg("error publishing announce message")
			}
		case resp := <-a.responseChan:
			a.client.Publish(a.respTopic, 2, false, resp)
		case state := <-a.stateChan:
			// state is sent at a high rate, a lost frame is replaced by the next one
			a.client.Publish(a.stateTopic, 0, false, state)
		}
	}

	return nil
}

func (a *Adapter) PublishResponse(resp core.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to marshal response")
		return
	}
	a.responseChan <- data
}

// PublishReading keeps only the newest reading if the previous one has not
// been published yet.
func (a *Adapter) PublishReading(r core.Reading) {
	data, err := json.Marshal(r)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to marshal reading")
		return
	}
	select {
	case a.stateChan <- data:
	default:
		select {
		case <-a.stateChan:
		default:
		}
		select {
		case a.stateChan <- data:
		default:
		}
	}
}

func (a *Adapter) Announce() {
	select {
	case a.announceChan <- true:
	default:
	}
}

func (a *Adapter) connect() error {
	opts := mqtt.NewClientOptions().AddBroker(a.opts.Broker).SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetCredentialsProvider(func() (username string, password string) {
		return a.opts.Username, a.opts.Password
	})
	opts.SetClientID(a.opts.ClientID)
	tlsConfig := &tls.Config{
		InsecureSkipVerify: !a.opts.CertCheck,
	}
	opts.SetTLSConfig(tlsConfig)
	opts.SetOnConnectHandler(func(cl mqtt.Client) {
		// subscribe to request topic
		cl.Subscribe(a.rqTopic, 2, func(cl mqtt.Client, msg mqtt.Message) {
			a.logger.Debug().Msgf("received request: %s", string(msg.Payload()))
			a.handler.HandleRequest(msg.Payload())
		})
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		a.logger.Warn().Err(err).Msg("MQTT connection lost, reconnecting")
	})

	a.client = mqtt.NewClient(opts)
	token := a.client.Connect()

	if !token.WaitTimeout(a.opts.ConnTimeout) {
		return errors.New("failed to connect to broker")
	}

	err := token.Error()
	return err
}
