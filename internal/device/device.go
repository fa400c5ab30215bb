// Package device glues the transport session to the motion coordinator: it
// decodes inbound controller messages, dispatches them, and emits the
// ACK/STATUS feedback for every command transition.
package device

import (
	"context"
	"encoding/json"
	"log"

	"pantilt-sentry/internal/actuator"
	"pantilt-sentry/internal/motion"
	"pantilt-sentry/internal/protocol"
)

// Transport is the outbound half of the connection session. Send must not
// block; undeliverable frames are dropped, never replayed.
type Transport interface {
	Send(data []byte)
}

// Config for one device session.
type Config struct {
	Node   string
	Motion motion.Config
	Driver actuator.Driver
}

// Device is one pan/tilt device session.
type Device struct {
	node  string
	tr    Transport
	lim   protocol.Limits
	coord *motion.Coordinator
}

// New builds the session and its coordinator. Wire HandleConnect and
// HandleMessage into the transport callbacks, then call Run.
func New(cfg Config, tr Transport) *Device {
	d := &Device{
		node: cfg.Node,
		tr:   tr,
		lim:  cfg.Motion.Limits,
	}
	d.coord = motion.New(cfg.Motion, cfg.Driver, d)
	return d
}

// Run drives the motion loop until ctx is cancelled.
func (d *Device) Run(ctx context.Context) {
	d.coord.Run(ctx)
}

// Coordinator exposes the session's coordinator.
func (d *Device) Coordinator() *motion.Coordinator {
	return d.coord
}

// HandleConnect announces the node. The transport calls it after every
// (re)connection.
func (d *Device) HandleConnect() {
	d.send(protocol.NewHello(d.node))
}

// HandleMessage decodes and dispatches one inbound text frame. Every
// accepted message carrying an id is ACKed immediately, before its
// state-machine side effect; undecodable messages are dropped silently.
func (d *Device) HandleMessage(data []byte) {
	in, err := protocol.Decode(data, d.coord.Position(), d.lim)
	if err != nil {
		log.Printf("[device] dropping message: %v", err)
		return
	}

	switch m := in.(type) {
	case protocol.Command:
		d.ack(m.ID)
		d.coord.Enqueue(m)

	case protocol.Cancel:
		d.ack(m.ID)
		d.coord.Cancel(m.ID)

	case protocol.Intent:
		d.ack(m.ID)
		d.coord.Direct(m)

	case protocol.Stop:
		if m.ID != "" {
			d.ack(m.ID)
		}
		d.coord.Stop(m.ID)

	case protocol.StatusRequest:
		snap := d.coord.Snapshot()
		d.send(protocol.Status{
			Type:  protocol.TypeStatus,
			State: snap.State,
			Pan:   snap.Position.Pan,
			Tilt:  snap.Position.Tilt,
			CmdID: snap.ActiveID,
		})
	}
}

// EmitStatus implements motion.Emitter.
func (d *Device) EmitStatus(id, state string, pos protocol.Position, errCode string) {
	d.send(protocol.NewStatus(id, state, pos, errCode))
}

func (d *Device) ack(id string) {
	d.send(protocol.NewAck(id))
}

func (d *Device) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[device] marshal: %v", err)
		return
	}
	d.tr.Send(data)
}
