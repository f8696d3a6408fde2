// Package gesture turns press/release input into a mute decision: a quick tap
// toggles the microphone, a sustained hold is push-to-talk.
package gesture

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultHoldDelay separates a tap from a hold.
	DefaultHoldDelay = 200 * time.Millisecond
	// DefaultClickSuppressWindow absorbs the synthetic click that follows a
	// release. Zero means "until the scheduler's next turn".
	DefaultClickSuppressWindow = 0
	// DefaultKey is the keyboard key that acts as the button.
	DefaultKey = " "
)

type Source int

const (
	SourcePointer Source = iota
	SourceTouch
	SourceKey
)

func (s Source) String() string {
	switch s {
	case SourcePointer:
		return "pointer"
	case SourceTouch:
		return "touch"
	case SourceKey:
		return "key"
	default:
		return "unknown"
	}
}

// ParseSource maps a wire name to a Source.
func ParseSource(name string) (Source, bool) {
	switch name {
	case "pointer", "mouse":
		return SourcePointer, true
	case "touch":
		return SourceTouch, true
	case "key", "keyboard":
		return SourceKey, true
	}
	return 0, false
}

type State int

const (
	Idle State = iota
	Pending
	Holding
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Holding:
		return "holding"
	default:
		return "idle"
	}
}

type Option func(*Controller)

func WithHoldDelay(d time.Duration) Option {
	return func(c *Controller) { c.holdDelay = d }
}

func WithClickSuppressWindow(d time.Duration) Option {
	return func(c *Controller) { c.suppressWindow = d }
}

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithKey sets the key that KeyDown/KeyUp treat as the button.
func WithKey(key string) Option {
	return func(c *Controller) { c.key = key }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller is the mute state machine behind the microphone button.
//
// onChange runs with the controller locked, once per actual change of the
// mute state. It must not call back into the Controller.
type Controller struct {
	mu       sync.Mutex
	onChange func(muted bool)

	sched          Scheduler
	holdDelay      time.Duration
	suppressWindow time.Duration
	key            string
	logger         zerolog.Logger

	muted            bool
	pushToTalkActive bool

	// pressed counts the sources currently held down.
	pressed   map[Source]struct{}
	holdTimer Timer
	holdGen   uint64

	suppressClick bool
	suppressTimer Timer
	suppressGen   uint64

	closed bool
}

// New returns a muted controller.
func New(onChange func(muted bool), opts ...Option) *Controller {
	c := &Controller{
		onChange:       onChange,
		sched:          ClockScheduler{},
		holdDelay:      DefaultHoldDelay,
		suppressWindow: DefaultClickSuppressWindow,
		key:            DefaultKey,
		logger:         log.With().Str("module", "gesture").Logger(),
		muted:          true,
		pressed:        make(map[Source]struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) IsMuted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *Controller) IsPushToTalkActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushToTalkActive
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.holdTimer != nil:
		return Pending
	case c.pushToTalkActive:
		return Holding
	default:
		return Idle
	}
}

// SetMuted notifies only when the value changes. Muting also ends an active
// push-to-talk.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setMuted(muted)
}

func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setMuted(!c.muted)
}

// StartPushToTalk unmutes for the duration of a confirmed hold.
func (c *Controller) StartPushToTalk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startPushToTalk()
}

// StopPushToTalk is a no-op unless push-to-talk is active.
func (c *Controller) StopPushToTalk() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPushToTalk()
}

// Press begins a gesture from src. Further sources pressed while one is held
// join the same gesture.
func (c *Controller) Press(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, held := c.pressed[src]; held {
		return
	}
	c.pressed[src] = struct{}{}
	if len(c.pressed) > 1 {
		c.logger.Debug().Str("source", src.String()).Int("held", len(c.pressed)).Msg("joined press")
		return
	}

	c.holdGen++
	gen := c.holdGen
	c.holdTimer = c.sched.AfterFunc(c.holdDelay, func() { c.onHoldTimer(gen) })
	c.logger.Debug().Str("source", src.String()).Msg("press started")
}

// Release ends src's part of the gesture. The gesture resolves when the last
// held source is released: a tap if the hold delay has not elapsed, otherwise
// the end of push-to-talk.
func (c *Controller) Release(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, held := c.pressed[src]; !held {
		return
	}
	delete(c.pressed, src)
	if len(c.pressed) > 0 {
		return
	}

	c.armClickSuppression()

	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
		c.logger.Debug().Str("source", src.String()).Msg("resolved as tap")
		c.setMuted(!c.muted)
		return
	}
	c.logger.Debug().Str("source", src.String()).Msg("hold released")
	c.stopPushToTalk()
}

// KeyDown presses the designated key. Auto-repeat is ignored.
func (c *Controller) KeyDown(key string, repeat bool) {
	if key != c.key || repeat {
		return
	}
	c.Press(SourceKey)
}

func (c *Controller) KeyUp(key string) {
	if key != c.key {
		return
	}
	c.Release(SourceKey)
}

// Click handles an activation that did not come from a press we observed,
// such as assistive technology or a scripted click. The click that follows a
// just-resolved press is swallowed.
func (c *Controller) Click() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.suppressClick {
		c.logger.Debug().Msg("synthetic click suppressed")
		return
	}
	c.setMuted(!c.muted)
}

// Close cancels outstanding timers and ignores further input.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
	if c.suppressTimer != nil {
		c.suppressTimer.Stop()
		c.suppressTimer = nil
	}
	clear(c.pressed)
}

func (c *Controller) onHoldTimer(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holdTimer == nil || gen != c.holdGen {
		return
	}
	c.holdTimer = nil
	c.logger.Debug().Msg("resolved as hold")
	c.startPushToTalk()
}

func (c *Controller) armClickSuppression() {
	if c.suppressTimer != nil {
		c.suppressTimer.Stop()
	}
	c.suppressClick = true
	c.suppressGen++
	gen := c.suppressGen
	c.suppressTimer = c.sched.AfterFunc(c.suppressWindow, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.suppressGen {
			return
		}
		c.suppressClick = false
		c.suppressTimer = nil
	})
}

func (c *Controller) startPushToTalk() {
	c.pushToTalkActive = true
	c.setMuted(false)
}

func (c *Controller) stopPushToTalk() {
	if !c.pushToTalkActive {
		return
	}
	c.pushToTalkActive = false
	c.setMuted(true)
}

func (c *Controller) setMuted(muted bool) {
	if muted {
		c.pushToTalkActive = false
	}
	if c.muted == muted {
		return
	}
	c.muted = muted
	if c.onChange != nil {
		c.onChange(muted)
	}
}
