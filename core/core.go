package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CommandSender transmits commands to the drone's command port.
type CommandSender interface {
	SendCommand(Command)
}

// Uplink carries bridge traffic to the controlling side.
type Uplink interface {
	PublishReading(Reading)
	PublishResponse(Response)
	Announce()
}

type Core struct {
	sender           CommandSender
	uplink           Uplink
	announceInterval int
	logger           *zerolog.Logger
	rqChan           chan *Request
	outcomeChan      chan Outcome
	readingChan      chan Reading
	lastMu           sync.RWMutex
	last             Reading
}

func NewCore(sender CommandSender, uplink Uplink, announceInterval int, logger *zerolog.Logger) *Core {
	return &Core{
		sender:           sender,
		uplink:           uplink,
		announceInterval: announceInterval,
		logger:           logger,
		rqChan:           make(chan *Request, 1000),
		outcomeChan:      make(chan Outcome, 1000),
		readingChan:      make(chan Reading, 100),
	}
}

func (c *Core) SetCommandSender(sender CommandSender) {
	c.sender = sender
}

func (c *Core) SetUplink(uplink Uplink) {
	c.uplink = uplink
}

// HandleRequest accepts a JSON encoded Request from the uplink.
func (c *Core) HandleRequest(msg []byte) {
	rq, err := DecodeRequest(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal request")
		return
	}

	c.rqChan <- rq
}

// HandleOutcome accepts a response read from the command port.
func (c *Core) HandleOutcome(o Outcome) {
	c.outcomeChan <- o
}

// HandleReading accepts a parsed state frame. Frames are dropped when the
// loop falls behind, the next one supersedes them anyway.
func (c *Core) HandleReading(r Reading) {
	select {
	case c.readingChan <- r:
	default:
		c.logger.Debug().Msg("reading queue full, dropping frame")
	}
}

// LastReading returns the most recent state frame seen by the loop.
func (c *Core) LastReading() Reading {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	return c.last
}

func (c *Core) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(c.announceInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case rq := <-c.rqChan:
			c.handleRequest(rq)
		case o := <-c.outcomeChan:
			if o.Err != nil {
				c.logger.Warn().Err(o.Err).Msg("command failed")
			}
			c.uplink.PublishResponse(NewResponse(o))
		case r := <-c.readingChan:
			c.lastMu.Lock()
			c.last = r
			c.lastMu.Unlock()
			c.uplink.PublishReading(r)
		case <-ticker.C:
			c.uplink.Announce()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Core) handleRequest(rq *Request) {
	cmd, err := rq.Command()
	if err != nil {
		c.logger.Error().Err(err).Msgf("rejected %s request", rq.Type)
		c.uplink.PublishResponse(Response{OK: false, Message: err.Error()})
		return
	}
	c.logger.Debug().Str("cmd", Encode(cmd)).Msg("forwarding command")
	c.sender.SendCommand(cmd)
}
