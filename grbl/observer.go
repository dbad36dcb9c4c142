// SPDX-License-Identifier: AGPL-3.0-or-later
package grbl

// Observer receives notifications of controller events. Most methods are
// invoked from worker goroutines (the RX worker for most, the TX worker
// for JobFinished); Connected, Disconnected, and the status changes and
// errors raised by Connect, Disconnect and AbortStream run on the calling
// goroutine. Methods must not block or call back into the Controller
// synchronously — per §5, RX-context callbacks must be non-blocking.
//
// An Observer must not hold a strong reference back to the Controller that
// registered it; that creates a reference cycle with no natural collection
// point (§9). Callers should deregister with RemoveObserver on teardown.
type Observer interface {
	StatusChange(s Status)
	PositionUpdate()
	ProgressUpdate(percent float64)
	LineReceived(raw string)
	Error(message string)
	Connected()
	Disconnected()
	JobFinished()
}

// NoopObserver implements Observer with empty methods, so a collaborator
// can embed it and override only the events it cares about.
type NoopObserver struct{}

func (NoopObserver) StatusChange(Status)    {}
func (NoopObserver) PositionUpdate()        {}
func (NoopObserver) ProgressUpdate(float64) {}
func (NoopObserver) LineReceived(string)    {}
func (NoopObserver) Error(string)           {}
func (NoopObserver) Connected()             {}
func (NoopObserver) Disconnected()          {}
func (NoopObserver) JobFinished()           {}

func (c *Controller) notifyStatusChange(s Status) {
	c.forEachObserver(func(o Observer) { o.StatusChange(s) })
}
func (c *Controller) notifyPositionUpdate() {
	c.forEachObserver(func(o Observer) { o.PositionUpdate() })
}
func (c *Controller) notifyProgressUpdate(pct float64) {
	c.forEachObserver(func(o Observer) { o.ProgressUpdate(pct) })
}
func (c *Controller) notifyLineReceived(raw string) {
	c.forEachObserver(func(o Observer) { o.LineReceived(raw) })
}
func (c *Controller) notifyError(msg string) {
	c.forEachObserver(func(o Observer) { o.Error(msg) })
}
func (c *Controller) notifyConnected() {
	c.forEachObserver(func(o Observer) { o.Connected() })
}
func (c *Controller) notifyDisconnected() {
	c.forEachObserver(func(o Observer) { o.Disconnected() })
}
func (c *Controller) notifyJobFinished() {
	c.forEachObserver(func(o Observer) { o.JobFinished() })
}

func (c *Controller) forEachObserver(fn func(Observer)) {
	c.observersMu.Lock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.observersMu.Unlock()

	for _, o := range observers {
		fn(o)
	}
}

// AddObserver registers an observer for all controller events.
func (c *Controller) AddObserver(o Observer) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	c.observers = append(c.observers, o)
}

// RemoveObserver deregisters an observer previously passed to AddObserver.
func (c *Controller) RemoveObserver(o Observer) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	for i, existing := range c.observers {
		if existing == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}
