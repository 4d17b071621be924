package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Family groups commands by the kind of request they make of the drone.
type Family int

const (
	FamilyControl Family = iota
	FamilyConfig
	FamilyQuery
)

func (f Family) String() string {
	switch f {
	case FamilyControl:
		return "control"
	case FamilyConfig:
		return "set"
	case FamilyQuery:
		return "read"
	}
	return "unknown"
}

// Command is one of the variants defined in this file. The set is closed:
// encode is unexported, so every variant lives here and must implement it.
type Command interface {
	Family() Family
	encode(b *strings.Builder)
}

// Encode renders cmd as the text the drone expects on its command port.
func Encode(cmd Command) string {
	var b strings.Builder
	cmd.encode(&b)
	return b.String()
}

const (
	MinDistance = 20
	MaxDistance = 500
	MinDegrees  = 1
	MaxDegrees  = 3600
	MinSpeed    = 10
	MaxSpeed    = 100
)

// Action is a control command without arguments.
type Action struct {
	verb string
}

var (
	EnterCommandMode = Action{"command"}
	Takeoff          = Action{"takeoff"}
	Land             = Action{"land"}
	StreamOn         = Action{"streamon"}
	StreamOff        = Action{"streamoff"}
	Emergency        = Action{"emergency"}
)

func (a Action) Family() Family { return FamilyControl }

func (a Action) encode(b *strings.Builder) {
	b.WriteString(a.verb)
}

// Direction of a straight-line move.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Left    Direction = "left"
	Right   Direction = "right"
	Forward Direction = "forward"
	Back    Direction = "back"
)

func (d Direction) valid() bool {
	switch d {
	case Up, Down, Left, Right, Forward, Back:
		return true
	}
	return false
}

// Move flies a straight line of Distance centimeters.
type Move struct {
	dir Direction
	cm  int
}

func NewMove(dir Direction, cm int) (Move, error) {
	if !dir.valid() {
		return Move{}, invalidArgument("move direction %q", string(dir))
	}
	if cm < MinDistance || cm > MaxDistance {
		return Move{}, invalidArgument("move distance %d (want %d-%d)", cm, MinDistance, MaxDistance)
	}
	return Move{dir: dir, cm: cm}, nil
}

func (m Move) Direction() Direction { return m.dir }
func (m Move) Distance() int        { return m.cm }
func (m Move) Family() Family       { return FamilyControl }

func (m Move) encode(b *strings.Builder) {
	b.WriteString(string(m.dir))
	writeInts(b, m.cm)
}

// Rotation sense of a Rotate command.
type Rotation string

const (
	Clockwise        Rotation = "cw"
	CounterClockwise Rotation = "ccw"
)

type Rotate struct {
	sense   Rotation
	degrees int
}

func NewRotate(sense Rotation, degrees int) (Rotate, error) {
	if sense != Clockwise && sense != CounterClockwise {
		return Rotate{}, invalidArgument("rotation %q", string(sense))
	}
	if degrees < MinDegrees || degrees > MaxDegrees {
		return Rotate{}, invalidArgument("rotation %d degrees (want %d-%d)", degrees, MinDegrees, MaxDegrees)
	}
	return Rotate{sense: sense, degrees: degrees}, nil
}

func (r Rotate) Rotation() Rotation { return r.sense }
func (r Rotate) Degrees() int       { return r.degrees }
func (r Rotate) Family() Family     { return FamilyControl }

func (r Rotate) encode(b *strings.Builder) {
	b.WriteString(string(r.sense))
	writeInts(b, r.degrees)
}

// FlipDirection is the single character the drone takes as flip argument.
type FlipDirection byte

const (
	FlipLeft    FlipDirection = 'l'
	FlipRight   FlipDirection = 'r'
	FlipForward FlipDirection = 'f'
	FlipBack    FlipDirection = 'b'
)

type Flip struct {
	dir FlipDirection
}

// NewFlip rejects any code outside l, r, f and b.
func NewFlip(dir FlipDirection) (Flip, error) {
	switch dir {
	case FlipLeft, FlipRight, FlipForward, FlipBack:
		return Flip{dir: dir}, nil
	}
	return Flip{}, invalidArgument("flip direction %q", rune(dir))
}

func (f Flip) Direction() FlipDirection { return f.dir }
func (f Flip) Family() Family           { return FamilyControl }

func (f Flip) encode(b *strings.Builder) {
	b.WriteString("flip ")
	b.WriteByte(byte(f.dir))
}

// Go flies to X, Y, Z (cm, relative to the current position) at Speed cm/s.
// The drone enforces its own limits, values are sent as given.
type Go struct {
	X, Y, Z, Speed uint
}

func (g Go) Family() Family { return FamilyControl }

func (g Go) encode(b *strings.Builder) {
	b.WriteString("go")
	writeUints(b, g.X, g.Y, g.Z, g.Speed)
}

// Curve flies an arc through (X1, Y1, Z1) to (X2, Y2, Z2) at Speed cm/s.
type Curve struct {
	X1, Y1, Z1 uint
	X2, Y2, Z2 uint
	Speed      uint
}

func (c Curve) Family() Family { return FamilyControl }

func (c Curve) encode(b *strings.Builder) {
	b.WriteString("curve")
	writeUints(b, c.X1, c.Y1, c.Z1, c.X2, c.Y2, c.Z2, c.Speed)
}

// SetSpeed sets the cruise speed in cm/s.
type SetSpeed struct {
	speed int
}

func NewSetSpeed(speed int) (SetSpeed, error) {
	if speed < MinSpeed || speed > MaxSpeed {
		return SetSpeed{}, invalidArgument("speed %d (want %d-%d)", speed, MinSpeed, MaxSpeed)
	}
	return SetSpeed{speed: speed}, nil
}

func (s SetSpeed) Speed() int     { return s.speed }
func (s SetSpeed) Family() Family { return FamilyConfig }

func (s SetSpeed) encode(b *strings.Builder) {
	b.WriteString("speed")
	writeInts(b, s.speed)
}

// RC sets the four remote control channels.
type RC struct {
	Roll, Pitch, Throttle, Yaw int
}

func (rc RC) Family() Family { return FamilyConfig }

func (rc RC) encode(b *strings.Builder) {
	b.WriteString("rc")
	writeInts(b, rc.Roll, rc.Pitch, rc.Throttle, rc.Yaw)
}

// Wifi changes the drone's access point credentials. The protocol has no
// quoting, so neither field may be empty or contain whitespace.
type Wifi struct {
	ssid     string
	password string
}

func NewWifi(ssid, password string) (Wifi, error) {
	if !isToken(ssid) {
		return Wifi{}, invalidArgument("wifi ssid %q", ssid)
	}
	if !isToken(password) {
		return Wifi{}, invalidArgument("wifi password")
	}
	return Wifi{ssid: ssid, password: password}, nil
}

func (w Wifi) SSID() string   { return w.ssid }
func (w Wifi) Family() Family { return FamilyConfig }

func (w Wifi) encode(b *strings.Builder) {
	b.WriteString("wifi ")
	b.WriteString(w.ssid)
	b.WriteByte(' ')
	b.WriteString(w.password)
}

// Query asks the drone for one value; the answer arrives as a plain response.
type Query struct {
	name string
}

var (
	QuerySpeed        = Query{"speed"}
	QueryTime         = Query{"time"}
	QueryBattery      = Query{"battery"}
	QueryHeight       = Query{"height"}
	QueryTemperature  = Query{"temp"}
	QueryAttitude     = Query{"attitude"}
	QueryBarometer    = Query{"baro"}
	QueryAcceleration = Query{"acceleration"}
	QueryTOF          = Query{"tof"}
	QueryWifi         = Query{"wifi"}
)

func (q Query) Family() Family { return FamilyQuery }

func (q Query) encode(b *strings.Builder) {
	b.WriteString(q.name)
	b.WriteByte('?')
}

func writeInts(b *strings.Builder, vals ...int) {
	for _, v := range vals {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(v))
	}
}

func writeUints(b *strings.Builder, vals ...uint) {
	for _, v := range vals {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(v), 10))
	}
}

func isToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
