package motion

import (
	"context"
	"log"
	"sync"
	"time"

	"pantilt-sentry/internal/actuator"
	"pantilt-sentry/internal/protocol"
)

type mode int

const (
	modeIdle mode = iota
	modeAbsolute
	modeDirectional
)

// Config for a Coordinator.
type Config struct {
	Limits   protocol.Limits
	StepSize int // degrees per tick in absolute mode

	// TickInterval is the stepping period; CommandTimeout is converted to a
	// tick count against it, so timeouts are soft and tick-aligned.
	TickInterval   time.Duration
	CommandTimeout time.Duration

	InitialPan  int
	InitialTilt int
}

// Emitter delivers protocol feedback for coordinator transitions. The
// coordinator calls it while holding its lock to keep status ordering
// strict, so implementations must be non-blocking.
type Emitter interface {
	EmitStatus(id, state string, pos protocol.Position, errCode string)
}

// Coordinator owns the active operation, the pending command queue and the
// actuator position for one device session. Two goroutines touch it: the
// transport's inbound handler (Enqueue, Cancel, Direct, Stop, Snapshot) and
// the stepping loop (Run/Step). A single mutex covers all shared state;
// actuator writes happen outside it with values computed inside.
type Coordinator struct {
	cfg          Config
	drv          actuator.Driver
	emit         Emitter
	timeoutTicks uint64

	mu       sync.Mutex
	queue    Queue
	mode     mode
	activeID string
	target   protocol.Position
	panDir   int
	tiltDir  int
	speed    int
	pos      protocol.Position
	cancel   bool
	ticks    uint64
	started  uint64
}

// New builds a Coordinator. The initial position is clamped to the legal
// envelope before anything else can observe it.
func New(cfg Config, drv actuator.Driver, emit Emitter) *Coordinator {
	return &Coordinator{
		cfg:          cfg,
		drv:          drv,
		emit:         emit,
		timeoutTicks: uint64(cfg.CommandTimeout / cfg.TickInterval),
		pos: protocol.Position{
			Pan:  cfg.Limits.ClampPan(cfg.InitialPan),
			Tilt: cfg.Limits.ClampTilt(cfg.InitialTilt),
		},
	}
}

// Run drives the stepping unit at the configured interval until ctx is
// cancelled. It first parks the actuator at the initial position.
func (c *Coordinator) Run(ctx context.Context) {
	c.mu.Lock()
	pos := c.pos
	c.mu.Unlock()
	c.apply(pos, true, true)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Step()
		}
	}
}

// Step executes one stepping-unit invocation: activate the next queued
// command when idle, advance the active operation by one increment, and
// settle terminations. Run calls it on every tick.
func (c *Coordinator) Step() {
	c.mu.Lock()
	c.ticks++

	if c.mode == modeIdle {
		if cmd, ok := c.queue.Pop(); ok {
			c.activate(cmd)
		}
	}

	var next protocol.Position
	var movedPan, movedTilt bool
	switch c.mode {
	case modeAbsolute:
		next, movedPan, movedTilt = c.stepAbsolute()
	case modeDirectional:
		next, movedPan, movedTilt = c.stepDirectional()
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.apply(next, movedPan, movedTilt)
}

// activate installs a dequeued absolute command. Lock held.
func (c *Coordinator) activate(cmd protocol.Command) {
	c.mode = modeAbsolute
	c.activeID = cmd.ID
	c.target = protocol.Position{
		Pan:  c.cfg.Limits.ClampPan(cmd.Pan),
		Tilt: c.cfg.Limits.ClampTilt(cmd.Tilt),
	}
	c.started = c.ticks
	c.cancel = false
	c.panDir, c.tiltDir, c.speed = 0, 0, 0
	c.emit.EmitStatus(cmd.ID, protocol.StateMoving, c.pos, "")
}

// stepAbsolute advances toward the target by at most StepSize per axis,
// landing exactly on the target without overshoot, then settles termination
// in priority order: cancel, success, timeout. Lock held.
func (c *Coordinator) stepAbsolute() (protocol.Position, bool, bool) {
	lim := c.cfg.Limits
	next := protocol.Position{
		Pan:  lim.ClampPan(stepToward(c.pos.Pan, c.target.Pan, c.cfg.StepSize)),
		Tilt: lim.ClampTilt(stepToward(c.pos.Tilt, c.target.Tilt, c.cfg.StepSize)),
	}
	movedPan := next.Pan != c.pos.Pan
	movedTilt := next.Tilt != c.pos.Tilt
	c.pos = next

	switch {
	case c.cancel:
		c.finish(protocol.StateCancelled)
	case c.pos == c.target:
		c.finish(protocol.StateSuccess)
	case c.ticks-c.started > c.timeoutTicks:
		c.finish(protocol.StateTimeout)
	}
	return next, movedPan, movedTilt
}

// stepDirectional advances each axis by direction*speed. The tilt safety
// floor is re-evaluated every tick: downward motion at or below the floor is
// neutralized for that tick only, not cleared from the intent. Lock held.
func (c *Coordinator) stepDirectional() (protocol.Position, bool, bool) {
	lim := c.cfg.Limits

	tiltDir := c.tiltDir
	if tiltDir < 0 && c.pos.Tilt <= lim.TiltMinSafe {
		tiltDir = 0
	}

	next := c.pos
	if c.panDir != 0 {
		next.Pan = lim.ClampPan(c.pos.Pan + c.panDir*c.speed)
	}
	if tiltDir != 0 {
		next.Tilt = lim.ClampTilt(c.pos.Tilt + tiltDir*c.speed)
	}
	movedPan := next.Pan != c.pos.Pan
	movedTilt := next.Tilt != c.pos.Tilt
	c.pos = next

	switch {
	case c.cancel:
		c.finish(protocol.StateCancelled)
	case (c.panDir != 0 || c.tiltDir != 0) && c.ticks-c.started > c.timeoutTicks:
		// The velocity guard avoids a spurious timeout on an intent that is
		// already stationary.
		c.finish(protocol.StateTimeout)
	}
	return next, movedPan, movedTilt
}

// finish emits the terminal status for the active operation and returns to
// idle. Lock held.
func (c *Coordinator) finish(state string) {
	c.emit.EmitStatus(c.activeID, state, c.pos, "")
	c.clearActive()
}

func (c *Coordinator) clearActive() {
	c.mode = modeIdle
	c.activeID = ""
	c.cancel = false
	c.panDir, c.tiltDir, c.speed = 0, 0, 0
}

// Enqueue appends an absolute move. It never preempts: the command waits in
// the queue until the coordinator is idle, even while a directional
// operation is active.
func (c *Coordinator) Enqueue(cmd protocol.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Push(cmd)
}

// Cancel terminates the command with the given id. An active command is
// cancelled cooperatively: the flag is observed by the next tick, which
// emits CANCELLED. A queued command is removed and reported immediately.
// Anything else gets STATUS(ERROR, not_active).
func (c *Coordinator) Cancel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.mode != modeIdle && c.activeID == id:
		c.cancel = true
	case c.queue.Remove(id):
		c.emit.EmitStatus(id, protocol.StateCancelled, c.pos, "")
	default:
		c.emit.EmitStatus(id, protocol.StateError, c.pos, protocol.ErrNotActive)
	}
}

// Direct installs a directional intent immediately, replacing whatever is
// active. This is the one priority path where the inbound handler performs
// the transition itself instead of deferring to the tick: PREEMPTED for a
// displaced absolute command must be ordered strictly before any status
// bearing the new id. An intent with no direction on either axis degenerates
// to an immediate stop and is never observed by the stepping unit.
func (c *Coordinator) Direct(in protocol.Intent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == modeAbsolute {
		c.emit.EmitStatus(c.activeID, protocol.StatePreempted, c.pos, "")
	}

	c.activeID = in.ID
	c.panDir, c.tiltDir, c.speed = in.PanDir, in.TiltDir, in.Speed
	c.cancel = false
	c.started = c.ticks

	if in.PanDir == 0 && in.TiltDir == 0 {
		c.emit.EmitStatus(in.ID, protocol.StateStopped, c.pos, "")
		c.clearActive()
		return
	}

	c.mode = modeDirectional
	c.emit.EmitStatus(in.ID, protocol.StateMoving, c.pos, "")
}

// Stop terminates the active directional operation when id is empty or
// matches it. Stop never touches an absolute command; those require CANCEL.
func (c *Coordinator) Stop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == modeDirectional && (id == "" || id == c.activeID) {
		c.emit.EmitStatus(id, protocol.StateStopped, c.pos, "")
		c.clearActive()
		return
	}
	c.emit.EmitStatus(id, protocol.StateError, c.pos, protocol.ErrNotActive)
}

// Snapshot reports the observable coordinator state for STATUS_REQ.
type Snapshot struct {
	State    string // IDLE, BUSY_ABS or BUSY_DIR
	ActiveID string
	Position protocol.Position
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{ActiveID: c.activeID, Position: c.pos}
	switch c.mode {
	case modeAbsolute:
		s.State = protocol.StateBusyAbs
	case modeDirectional:
		s.State = protocol.StateBusyDir
	default:
		s.State = protocol.StateIdle
	}
	return s
}

// Position returns the current actuator position.
func (c *Coordinator) Position() protocol.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// apply writes changed axes to the actuator, outside the lock, using only
// the just-computed values. Driver errors are not fatal: the position store
// already moved and the next write resynchronizes the hardware.
func (c *Coordinator) apply(pos protocol.Position, pan, tilt bool) {
	if pan {
		if err := c.drv.SetAngle(actuator.AxisPan, pos.Pan); err != nil {
			log.Printf("[motion] pan drive error: %v", err)
		}
	}
	if tilt {
		if err := c.drv.SetAngle(actuator.AxisTilt, pos.Tilt); err != nil {
			log.Printf("[motion] tilt drive error: %v", err)
		}
	}
}

// stepToward moves cur toward target by at most step, capped by the
// remaining distance so the final step lands exactly on target.
func stepToward(cur, target, step int) int {
	switch {
	case cur < target:
		if target-cur < step {
			return target
		}
		return cur + step
	case cur > target:
		if cur-target < step {
			return target
		}
		return cur - step
	default:
		return cur
	}
}
