package core

import (
	"encoding/json"
	"strings"
)

const (
	RequestTypeControl = "control"
	RequestTypeSet     = "set"
	RequestTypeRead    = "read"
)

// Request is a command as it arrives from the uplink, e.g.
// {"type":"control","cmd":"up","args":[50]}.
type Request struct {
	Type   string   `json:"type"`
	Cmd    string   `json:"cmd"`
	Args   []int    `json:"args,omitempty"`
	Params []string `json:"params,omitempty"`
}

// Response is what the bridge reports back for every command outcome.
type Response struct {
	OK      bool   `json:"ok"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewResponse(o Outcome) Response {
	if o.Err != nil {
		return Response{OK: false, Message: o.Err.Error()}
	}
	return Response{OK: true, Value: o.Value}
}

func DecodeRequest(msg []byte) (*Request, error) {
	var rq Request
	if err := json.Unmarshal(msg, &rq); err != nil {
		return nil, err
	}
	return &rq, nil
}

var actions = map[string]Action{
	"command":   EnterCommandMode,
	"takeoff":   Takeoff,
	"land":      Land,
	"streamon":  StreamOn,
	"streamoff": StreamOff,
	"emergency": Emergency,
}

var queries = map[string]Query{
	"speed":        QuerySpeed,
	"time":         QueryTime,
	"battery":      QueryBattery,
	"height":       QueryHeight,
	"temp":         QueryTemperature,
	"attitude":     QueryAttitude,
	"baro":         QueryBarometer,
	"acceleration": QueryAcceleration,
	"tof":          QueryTOF,
	"wifi":         QueryWifi,
}

// Command builds the typed command described by the request.
func (rq *Request) Command() (Command, error) {
	switch rq.Type {
	case RequestTypeControl:
		return rq.controlCommand()
	case RequestTypeSet:
		return rq.setCommand()
	case RequestTypeRead:
		if q, ok := queries[rq.Cmd]; ok && len(rq.Args) == 0 {
			return q, nil
		}
		return nil, invalidArgument("read request %q", rq.Cmd)
	}
	return nil, invalidArgument("request type %q", rq.Type)
}

func (rq *Request) controlCommand() (Command, error) {
	if a, ok := actions[rq.Cmd]; ok {
		if err := rq.wantArgs(0); err != nil {
			return nil, err
		}
		return a, nil
	}

	switch rq.Cmd {
	case "up", "down", "left", "right", "forward", "back":
		if err := rq.wantArgs(1); err != nil {
			return nil, err
		}
		return NewMove(Direction(rq.Cmd), rq.Args[0])
	case "cw", "ccw":
		if err := rq.wantArgs(1); err != nil {
			return nil, err
		}
		return NewRotate(Rotation(rq.Cmd), rq.Args[0])
	case "flip":
		if len(rq.Params) != 1 || len(rq.Params[0]) != 1 {
			return nil, invalidArgument("flip params %q", strings.Join(rq.Params, ","))
		}
		return NewFlip(FlipDirection(rq.Params[0][0]))
	case "go":
		v, err := rq.uints(4)
		if err != nil {
			return nil, err
		}
		return Go{X: v[0], Y: v[1], Z: v[2], Speed: v[3]}, nil
	case "curve":
		v, err := rq.uints(7)
		if err != nil {
			return nil, err
		}
		return Curve{X1: v[0], Y1: v[1], Z1: v[2], X2: v[3], Y2: v[4], Z2: v[5], Speed: v[6]}, nil
	}
	return nil, invalidArgument("control request %q", rq.Cmd)
}

func (rq *Request) setCommand() (Command, error) {
	switch rq.Cmd {
	case "speed":
		if err := rq.wantArgs(1); err != nil {
			return nil, err
		}
		return NewSetSpeed(rq.Args[0])
	case "rc":
		if err := rq.wantArgs(4); err != nil {
			return nil, err
		}
		return RC{Roll: rq.Args[0], Pitch: rq.Args[1], Throttle: rq.Args[2], Yaw: rq.Args[3]}, nil
	case "wifi":
		if len(rq.Params) != 2 {
			return nil, invalidArgument("wifi params count %d", len(rq.Params))
		}
		return NewWifi(rq.Params[0], rq.Params[1])
	}
	return nil, invalidArgument("set request %q", rq.Cmd)
}

func (rq *Request) wantArgs(n int) error {
	if len(rq.Args) != n {
		return invalidArgument("%s %s args count %d (want %d)", rq.Type, rq.Cmd, len(rq.Args), n)
	}
	return nil
}

func (rq *Request) uints(n int) ([]uint, error) {
	if err := rq.wantArgs(n); err != nil {
		return nil, err
	}
	out := make([]uint, n)
	for i, a := range rq.Args {
		if a < 0 {
			return nil, invalidArgument("%s argument %d value %d", rq.Cmd, i, a)
		}
		out[i] = uint(a)
	}
	return out, nil
}
