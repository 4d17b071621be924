package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/juju/errors"
)

type MqttConfig struct {
	Broker            string `json:"broker"`
	ConnTimeout       int    `json:"connTimeout"`
	Username          string `json:"username"`
	Password          string `json:"password"`
	ClientId          string `json:"clientId"`
	DroneId           string `json:"droneId"`
	AnnounceTopic     string `json:"announceTopic"`
	AnnounceTimeout   int    `json:"announceTimeout"`
	DisconnectTimeout int    `json:"disconnectTimeout"`
	CertCheck         bool   `json:"certCheck"`
}

// DroneConfig describes how to reach the drone. Times are in milliseconds.
// MaxProbes bounds the liveness handshake, 0 retries forever.
type DroneConfig struct {
	Address      string `json:"address"`
	StateAddr    string `json:"stateAddr"`
	ProbeTimeout int    `json:"probeTimeout"`
	ProbeBackoff int    `json:"probeBackoff"`
	MaxProbes    int    `json:"maxProbes"`
	EnterSdkMode *bool  `json:"enterSdkMode"`
	QueueSize    int    `json:"queueSize"`
}

// VideoConfig enables the video listener. When DumpFile is set the raw
// stream is appended to it.
type VideoConfig struct {
	Enabled   bool   `json:"enabled"`
	Addr      string `json:"addr"`
	QueueSize int    `json:"queueSize"`
	DumpFile  string `json:"dumpFile"`
}

// JSON-based bridge configuration
type Config struct {
	Drone            *DroneConfig `json:"drone"`
	Mqtt             *MqttConfig  `json:"mqtt"`
	Video            *VideoConfig `json:"video"`
	AnnounceInterval int          `json:"announceInterval"`
	MetricsAddr      string       `json:"metricsAddr"`
	LogLevel         string       `json:"logLevel"`
}

func NewConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Annotate(err, "open config")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Annotatef(err, "read config %s", filename)
	}

	return Parse(data)
}

// Parse decodes a JSON configuration and fills in defaults for missing values.
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	err := json.Unmarshal(data, config)
	if err != nil {
		return nil, errors.Annotate(err, "parse config")
	}

	config.setDefaults()
	return config, nil
}

func (c *Config) setDefaults() {
	if c.Drone == nil {
		c.Drone = &DroneConfig{}
	}
	if c.Drone.Address == "" {
		c.Drone.Address = "192.168.10.1:8889"
	}
	if c.Drone.StateAddr == "" {
		c.Drone.StateAddr = ":8890"
	}
	if c.Drone.ProbeTimeout <= 0 {
		c.Drone.ProbeTimeout = 2000
	}
	if c.Drone.ProbeBackoff <= 0 {
		c.Drone.ProbeBackoff = 1000
	}
	if c.Drone.MaxProbes < 0 {
		c.Drone.MaxProbes = 0
	}
	if c.Drone.EnterSdkMode == nil {
		enter := true
		c.Drone.EnterSdkMode = &enter
	}
	if c.Drone.QueueSize <= 0 {
		c.Drone.QueueSize = 100
	}

	if c.Video == nil {
		c.Video = &VideoConfig{}
	}
	if c.Video.Addr == "" {
		c.Video.Addr = ":11111"
	}
	if c.Video.QueueSize <= 0 {
		c.Video.QueueSize = 100
	}

	if c.Mqtt != nil {
		if c.Mqtt.DroneId == "" {
			c.Mqtt.DroneId = "tello"
		}
		if c.Mqtt.AnnounceTopic == "" {
			c.Mqtt.AnnounceTopic = "drone/announce"
		}
		if c.Mqtt.ConnTimeout <= 0 {
			c.Mqtt.ConnTimeout = 10000
		}
		if c.Mqtt.AnnounceTimeout <= 0 {
			c.Mqtt.AnnounceTimeout = 3000
		}
		if c.Mqtt.DisconnectTimeout <= 0 {
			c.Mqtt.DisconnectTimeout = 500
		}
	}

	if c.AnnounceInterval <= 0 {
		c.AnnounceInterval = 3000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
