package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCommand(t *testing.T, cmd Command, err error) Command {
	t.Helper()
	require.NoError(t, err)
	return cmd
}

func TestEncode(t *testing.T) {
	t.Parallel()

	move := func(d Direction, cm int) Command {
		m, err := NewMove(d, cm)
		return mustCommand(t, m, err)
	}
	rotate := func(r Rotation, deg int) Command {
		c, err := NewRotate(r, deg)
		return mustCommand(t, c, err)
	}
	flip := func(d FlipDirection) Command {
		f, err := NewFlip(d)
		return mustCommand(t, f, err)
	}
	speed := func(s int) Command {
		c, err := NewSetSpeed(s)
		return mustCommand(t, c, err)
	}
	wifi, err := NewWifi("tello-net", "s3cret")
	require.NoError(t, err)

	tests := []struct {
		cmd    Command
		want   string
		family Family
	}{
		{EnterCommandMode, "command", FamilyControl},
		{Takeoff, "takeoff", FamilyControl},
		{Land, "land", FamilyControl},
		{StreamOn, "streamon", FamilyControl},
		{StreamOff, "streamoff", FamilyControl},
		{Emergency, "emergency", FamilyControl},
		{move(Up, 20), "up 20", FamilyControl},
		{move(Down, 500), "down 500", FamilyControl},
		{move(Left, 100), "left 100", FamilyControl},
		{move(Right, 21), "right 21", FamilyControl},
		{move(Forward, 499), "forward 499", FamilyControl},
		{move(Back, 250), "back 250", FamilyControl},
		{rotate(Clockwise, 1), "cw 1", FamilyControl},
		{rotate(CounterClockwise, 3600), "ccw 3600", FamilyControl},
		{rotate(Clockwise, 90), "cw 90", FamilyControl},
		{flip(FlipLeft), "flip l", FamilyControl},
		{flip(FlipRight), "flip r", FamilyControl},
		{flip(FlipForward), "flip f", FamilyControl},
		{flip(FlipBack), "flip b", FamilyControl},
		{Go{X: 100, Y: 0, Z: 50, Speed: 10}, "go 100 0 50 10", FamilyControl},
		{Curve{X1: 20, Y1: 20, Z1: 0, X2: 60, Y2: 40, Z2: 0, Speed: 30}, "curve 20 20 0 60 40 0 30", FamilyControl},
		{speed(10), "speed 10", FamilyConfig},
		{speed(100), "speed 100", FamilyConfig},
		{RC{Roll: -100, Pitch: 0, Throttle: 35, Yaw: -1}, "rc -100 0 35 -1", FamilyConfig},
		{wifi, "wifi tello-net s3cret", FamilyConfig},
		{QuerySpeed, "speed?", FamilyQuery},
		{QueryTime, "time?", FamilyQuery},
		{QueryBattery, "battery?", FamilyQuery},
		{QueryHeight, "height?", FamilyQuery},
		{QueryTemperature, "temp?", FamilyQuery},
		{QueryAttitude, "attitude?", FamilyQuery},
		{QueryBarometer, "baro?", FamilyQuery},
		{QueryAcceleration, "acceleration?", FamilyQuery},
		{QueryTOF, "tof?", FamilyQuery},
		{QueryWifi, "wifi?", FamilyQuery},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Encode(tc.cmd))
			assert.Equal(t, Encode(tc.cmd), Encode(tc.cmd))
			assert.Equal(t, tc.family, tc.cmd.Family())
		})
	}
}

func TestConstructorsRejectOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  func() error
	}{
		{"move below range", func() error { _, err := NewMove(Up, 19); return err }},
		{"move above range", func() error { _, err := NewMove(Down, 501); return err }},
		{"move negative", func() error { _, err := NewMove(Left, -20); return err }},
		{"move unknown direction", func() error { _, err := NewMove(Direction("sideways"), 50); return err }},
		{"rotate zero", func() error { _, err := NewRotate(Clockwise, 0); return err }},
		{"rotate above range", func() error { _, err := NewRotate(CounterClockwise, 3601); return err }},
		{"rotate unknown sense", func() error { _, err := NewRotate(Rotation("spin"), 90); return err }},
		{"speed below range", func() error { _, err := NewSetSpeed(9); return err }},
		{"speed above range", func() error { _, err := NewSetSpeed(101); return err }},
		{"wifi empty ssid", func() error { _, err := NewWifi("", "pass"); return err }},
		{"wifi ssid with space", func() error { _, err := NewWifi("my net", "pass"); return err }},
		{"wifi password with tab", func() error { _, err := NewWifi("net", "pa\tss"); return err }},
		{"wifi empty password", func() error { _, err := NewWifi("net", ""); return err }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.err()
			require.Error(t, err)
			assert.True(t, IsInvalidArgument(err), "expected invalid argument, got %v", err)
		})
	}
}

func TestFlipRejectsUnknownDirection(t *testing.T) {
	t.Parallel()

	for _, c := range []byte("LRFBxyz0 ?") {
		_, err := NewFlip(FlipDirection(c))
		assert.True(t, IsInvalidArgument(err), "flip %q", c)
	}
	for _, c := range []byte("lrfb") {
		f, err := NewFlip(FlipDirection(c))
		require.NoError(t, err)
		assert.Equal(t, "flip "+string(c), Encode(f))
	}
}

func TestConstructorsAccessors(t *testing.T) {
	t.Parallel()

	m, err := NewMove(Forward, 120)
	require.NoError(t, err)
	assert.Equal(t, Forward, m.Direction())
	assert.Equal(t, 120, m.Distance())

	r, err := NewRotate(CounterClockwise, 45)
	require.NoError(t, err)
	assert.Equal(t, CounterClockwise, r.Rotation())
	assert.Equal(t, 45, r.Degrees())

	s, err := NewSetSpeed(55)
	require.NoError(t, err)
	assert.Equal(t, 55, s.Speed())

	w, err := NewWifi("ssid", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ssid", w.SSID())
}
