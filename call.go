package answer

import "sync"

// Call is the handle for one in-flight GenerateAnswer invocation.
//
// Events are delivered in order on the channel returned by Events. The
// channel yields exactly one EventDone as its final value and is then
// closed. Callers must drain the channel until it is closed.
type Call struct {
	events  <-chan Event
	cleanup func()
	once    sync.Once
}

// NewCall creates a Call over an event channel. cleanup may be nil.
func NewCall(events <-chan Event, cleanup func()) *Call {
	return &Call{events: events, cleanup: cleanup}
}

// Events returns the event channel for this call.
func (c *Call) Events() <-chan Event {
	return c.events
}

// Cleanup releases upstream resources created by the call, such as hiding the
// conversation it produced. It never blocks on the network and never fails:
// work is scheduled in the background and failures are logged.
// Only the first invocation has any effect.
func (c *Call) Cleanup() {
	c.once.Do(func() {
		if c.cleanup != nil {
			c.cleanup()
		}
	})
}

// Wait drains the call, invoking fn for every event including the final
// EventDone, and returns the error carried by EventDone. fn may be nil.
func (c *Call) Wait(fn func(Event)) error {
	var err error
	for ev := range c.events {
		if fn != nil {
			fn(ev)
		}
		if ev.IsDone() {
			err = ev.Err
		}
	}
	return err
}

// Text drains the call and returns the text of the last answer received.
func (c *Call) Text() (string, error) {
	var text string
	err := c.Wait(func(ev Event) {
		if ev.Answer != nil {
			text = ev.Answer.Text
		}
	})
	return text, err
}
