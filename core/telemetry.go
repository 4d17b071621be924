package core

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Keys of the state frame fields the drone is known to send.
const (
	KeyPitch         = "pitch"
	KeyRoll          = "roll"
	KeyYaw           = "yaw"
	KeyVelocityX     = "vgx"
	KeyVelocityY     = "vgy"
	KeyVelocityZ     = "vgz"
	KeyTempLow       = "templ"
	KeyTempHigh      = "temph"
	KeyTOF           = "tof"
	KeyHeight        = "h"
	KeyBattery       = "bat"
	KeyBarometer     = "baro"
	KeyMotorTime     = "time"
	KeyAccelerationX = "agx"
	KeyAccelerationY = "agy"
	KeyAccelerationZ = "agz"
)

// Reading is one parsed state frame. Values are kept as the raw text the
// drone sent; units and number conversion are up to the caller.
type Reading struct {
	fields map[string]string
}

// ParseReading decodes a frame of the form "k1:v1;k2:v2;...;". It never
// fails: undecodable input gives an empty Reading and malformed segments
// are skipped.
func ParseReading(raw []byte) Reading {
	r := Reading{fields: make(map[string]string)}
	if !utf8.Valid(raw) {
		return r
	}

	for _, segment := range strings.Split(strings.TrimSpace(string(raw)), ";") {
		kv := strings.Split(segment, ":")
		if len(kv) != 2 {
			continue
		}
		r.fields[kv[0]] = kv[1]
	}
	return r
}

// Field returns the raw value for key and whether the frame contained it.
func (r Reading) Field(key string) (string, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Fields returns a copy of every field in the frame, known or not.
func (r Reading) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}

func (r Reading) Len() int {
	return len(r.fields)
}

// Attitude, degrees.
func (r Reading) Pitch() (string, bool) { return r.Field(KeyPitch) }
func (r Reading) Roll() (string, bool)  { return r.Field(KeyRoll) }
func (r Reading) Yaw() (string, bool)   { return r.Field(KeyYaw) }

// Velocity, cm/s.
func (r Reading) VelocityX() (string, bool) { return r.Field(KeyVelocityX) }
func (r Reading) VelocityY() (string, bool) { return r.Field(KeyVelocityY) }
func (r Reading) VelocityZ() (string, bool) { return r.Field(KeyVelocityZ) }

// Temperature, degrees Celsius.
func (r Reading) TempLow() (string, bool)  { return r.Field(KeyTempLow) }
func (r Reading) TempHigh() (string, bool) { return r.Field(KeyTempHigh) }

// Distance measured by the time-of-flight sensor, cm.
func (r Reading) TOF() (string, bool) { return r.Field(KeyTOF) }

// Height, cm.
func (r Reading) Height() (string, bool) { return r.Field(KeyHeight) }

// Battery charge, percent.
func (r Reading) Battery() (string, bool) { return r.Field(KeyBattery) }

// Barometric altitude, cm.
func (r Reading) Barometer() (string, bool) { return r.Field(KeyBarometer) }

// Time the motors have been on, seconds.
func (r Reading) MotorTime() (string, bool) { return r.Field(KeyMotorTime) }

// Acceleration, 0.001g.
func (r Reading) AccelerationX() (string, bool) { return r.Field(KeyAccelerationX) }
func (r Reading) AccelerationY() (string, bool) { return r.Field(KeyAccelerationY) }
func (r Reading) AccelerationZ() (string, bool) { return r.Field(KeyAccelerationZ) }

func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}
