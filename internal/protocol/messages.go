package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound message types (controller -> device)
const (
	TypeMove      = "MOVE"
	TypeCancel    = "CANCEL"
	TypeStatusReq = "STATUS_REQ"
	TypeMoveDir   = "MOVE_DIR"
	TypeStop      = "STOP"
)

// Outbound message types (device -> controller)
const (
	TypeHello  = "HELLO"
	TypeAck    = "ACK"
	TypeStatus = "STATUS"
)

// Status states reported to the controller
const (
	StateMoving    = "MOVING"
	StateSuccess   = "SUCCESS"
	StateCancelled = "CANCELLED"
	StatePreempted = "PREEMPTED"
	StateTimeout   = "TIMEOUT"
	StateStopped   = "STOPPED"
	StateError     = "ERROR"
	StateIdle      = "IDLE"
	StateBusyAbs   = "BUSY_ABS"
	StateBusyDir   = "BUSY_DIR"
)

// Direction tokens accepted in MOVE_DIR messages
const (
	DirLeft  = "LEFT"
	DirRight = "RIGHT"
	DirUp    = "UP"
	DirDown  = "DOWN"
	DirNone  = "NONE"
)

// ErrNotActive is the error code attached to STATUS(ERROR) replies for
// CANCEL/STOP messages referencing an id that is neither active nor queued.
const ErrNotActive = "not_active"

// Decode failures. Messages failing with any of these are dropped without a
// reply.
var (
	ErrBadMessage   = errors.New("unparseable message")
	ErrUnknownType  = errors.New("unknown message type")
	ErrMissingField = errors.New("missing required field")
)

// Position is a pan/tilt pair in integer degrees.
type Position struct {
	Pan  int
	Tilt int
}

// Limits describes the legal motion envelope. TiltMinSafe is the safety
// floor: no motion or command may take tilt below it, regardless of TiltMin.
type Limits struct {
	PanMin      int
	PanMax      int
	TiltMin     int
	TiltMax     int
	TiltMinSafe int
}

// ClampPan constrains a pan angle to the legal range.
func (l Limits) ClampPan(v int) int {
	if v < l.PanMin {
		return l.PanMin
	}
	if v > l.PanMax {
		return l.PanMax
	}
	return v
}

// ClampTilt constrains a tilt angle to [TiltMinSafe, TiltMax]. The floor is
// always the safety minimum, never the absolute zero.
func (l Limits) ClampTilt(v int) int {
	if v < l.TiltMinSafe {
		return l.TiltMinSafe
	}
	if v > l.TiltMax {
		return l.TiltMax
	}
	return v
}

// Inbound is one decoded controller message. Concrete variants: Command,
// Cancel, StatusRequest, Intent, Stop.
type Inbound interface {
	inbound()
}

// Command is an absolute move request. Pan and tilt are already clamped to
// the legal envelope at decode time.
type Command struct {
	ID   string
	Pan  int
	Tilt int
}

// Cancel requests termination of a queued or active command.
type Cancel struct {
	ID string
}

// StatusRequest asks for an immediate status report.
type StatusRequest struct{}

// Intent is a continuous directional move: per-axis direction in {-1,0,+1}
// and speed in degrees per tick. Intents are never queued.
type Intent struct {
	ID      string
	PanDir  int
	TiltDir int
	Speed   int
}

// Stop requests termination of the active directional operation. ID may be
// empty, in which case any active directional operation matches.
type Stop struct {
	ID string
}

func (Command) inbound()       {}
func (Cancel) inbound()        {}
func (StatusRequest) inbound() {}
func (Intent) inbound()        {}
func (Stop) inbound()          {}

// inboundJSON is the raw wire shape shared by all inbound message types.
type inboundJSON struct {
	Type    string  `json:"type"`
	ID      *string `json:"id"`
	Pan     *int    `json:"pan"`
	Tilt    *int    `json:"tilt"`
	PanDir  string  `json:"pan_dir"`
	TiltDir string  `json:"tilt_dir"`
	Speed   *int    `json:"speed"`
}

// Decode parses one inbound text message into a typed variant, validating
// required fields and clamping numeric ranges. cur supplies the current
// position for MOVE messages omitting pan or tilt.
func Decode(data []byte, cur Position, lim Limits) (Inbound, error) {
	var raw inboundJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	switch raw.Type {
	case TypeMove:
		id, err := requiredID(raw)
		if err != nil {
			return nil, err
		}
		pan, tilt := cur.Pan, cur.Tilt
		if raw.Pan != nil {
			pan = *raw.Pan
		}
		if raw.Tilt != nil {
			tilt = *raw.Tilt
		}
		return Command{
			ID:   id,
			Pan:  lim.ClampPan(pan),
			Tilt: lim.ClampTilt(tilt),
		}, nil

	case TypeCancel:
		id, err := requiredID(raw)
		if err != nil {
			return nil, err
		}
		return Cancel{ID: id}, nil

	case TypeStatusReq:
		return StatusRequest{}, nil

	case TypeMoveDir:
		id, err := requiredID(raw)
		if err != nil {
			return nil, err
		}
		speed := 1
		if raw.Speed != nil {
			speed = *raw.Speed
		}
		if speed < 1 {
			speed = 1
		} else if speed > 10 {
			speed = 10
		}
		return Intent{
			ID:      id,
			PanDir:  panDirection(raw.PanDir),
			TiltDir: tiltDirection(raw.TiltDir),
			Speed:   speed,
		}, nil

	case TypeStop:
		var id string
		if raw.ID != nil {
			id = *raw.ID
		}
		return Stop{ID: id}, nil

	case "":
		return nil, fmt.Errorf("%w: no type field", ErrUnknownType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, raw.Type)
	}
}

func requiredID(raw inboundJSON) (string, error) {
	if raw.ID == nil || *raw.ID == "" {
		return "", fmt.Errorf("%w: id", ErrMissingField)
	}
	return *raw.ID, nil
}

// panDirection maps a wire token to a signed step direction. Unrecognized
// tokens count as NONE; the tracker side only ever sends the five known
// tokens.
func panDirection(s string) int {
	switch s {
	case DirLeft:
		return -1
	case DirRight:
		return +1
	default:
		return 0
	}
}

func tiltDirection(s string) int {
	switch s {
	case DirDown:
		return -1
	case DirUp:
		return +1
	default:
		return 0
	}
}

// Hello announces the node once per connection.
type Hello struct {
	Type string `json:"type"`
	Node string `json:"node"`
}

// NewHello builds the HELLO message for a node.
func NewHello(node string) Hello {
	return Hello{Type: TypeHello, Node: node}
}

// Ack acknowledges receipt of an inbound message carrying an id.
type Ack struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewAck builds the ACK message for an id.
func NewAck(id string) Ack {
	return Ack{Type: TypeAck, ID: id}
}

// Status reports a command transition or, for STATUS_REQ responses, the
// coordinator state. CmdID carries the active command id on STATUS_REQ
// responses, where the top-level id field is empty.
type Status struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	State string `json:"state"`
	Pan   int    `json:"pan"`
	Tilt  int    `json:"tilt"`
	CmdID string `json:"cmd_id,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewStatus builds a STATUS message for a command transition.
func NewStatus(id, state string, pos Position, errCode string) Status {
	return Status{
		Type:  TypeStatus,
		ID:    id,
		State: state,
		Pan:   pos.Pan,
		Tilt:  pos.Tilt,
		Error: errCode,
	}
}
