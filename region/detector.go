package region

import (
	"time"

	"web/polaris/geo"
)

// DefaultConfirmDelay is ten frames at 60 frames per second.
const DefaultConfirmDelay = 10 * time.Second / 60

// Listener is told about visible region changes. OnRegionChanged fires on
// every observed change; OnRegionChangeConfirmed fires once the region has
// stayed put for the confirm delay outside of a gesture.
type Listener interface {
	OnRegionChanged(r geo.Region)
	OnRegionChangeConfirmed(r geo.Region)
}

// Detector debounces region changes. Every method must be called from the
// scheduler's event thread.
type Detector struct {
	source   func() geo.Region
	sched    Scheduler
	delay    time.Duration
	listener Listener

	previous          geo.Region
	previousConfirmed geo.Region
	inGesture         bool
	pending           Timer
	closed            bool
}

// NewDetector creates a detector reading the current region from source. A
// non-positive delay selects DefaultConfirmDelay.
func NewDetector(source func() geo.Region, sched Scheduler, delay time.Duration, listener Listener) *Detector {
	if delay <= 0 {
		delay = DefaultConfirmDelay
	}
	return &Detector{
		source:   source,
		sched:    sched,
		delay:    delay,
		listener: listener,
	}
}

func (d *Detector) SetListener(l Listener) {
	d.listener = l
}

func (d *Detector) Delay() time.Duration {
	return d.delay
}

// Check compares the current region with the last one seen and, when it
// moved, reports the change and restarts the confirmation timer. It is
// called after every layout pass.
func (d *Detector) Check() bool {
	if d.closed {
		return false
	}
	current := d.source()
	if current == d.previous {
		return false
	}
	d.previous = current
	if d.listener != nil {
		d.listener.OnRegionChanged(current)
	}
	d.schedule()
	return true
}

// GestureStarted is called on touch down. No confirmation fires until the
// gesture ends.
func (d *Detector) GestureStarted() {
	d.inGesture = true
	d.cancel()
}

// GestureEnded is called on touch up or cancel. A confirmation is only
// scheduled when the region moved since the last one.
func (d *Detector) GestureEnded() {
	d.inGesture = false
	if d.previous == d.previousConfirmed {
		return
	}
	d.schedule()
}

func (d *Detector) InGesture() bool {
	return d.inGesture
}

// Close cancels any pending confirmation. Nothing fires afterwards.
func (d *Detector) Close() {
	d.closed = true
	d.cancel()
}

func (d *Detector) cancel() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

func (d *Detector) schedule() {
	d.cancel()
	if d.inGesture || d.closed {
		return
	}
	d.pending = d.sched.PostDelayed(d.delay, d.confirm)
}

func (d *Detector) confirm() {
	d.pending = nil
	if d.closed {
		return
	}
	current := d.source()
	if current == d.previousConfirmed {
		return
	}
	d.previousConfirmed = current
	if d.listener != nil {
		d.listener.OnRegionChangeConfirmed(current)
	}
}
