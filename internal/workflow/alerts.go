package workflow

import (
	"sync"
	"time"
)

// alertTTL is how long an alert stays visible before it clears itself.
const alertTTL = 3 * time.Second

// AlertKind distinguishes success notices from failures.
type AlertKind string

const (
	AlertSuccess AlertKind = "success"
	AlertError   AlertKind = "error"
)

// Alert is a transient operator notice.
type Alert struct {
	Kind    AlertKind
	Message string
	Expiry  time.Time
}

// AlertCenter holds at most one live alert and expires it on a timer. The
// timer is owned by the center and stopped deterministically on Close, so no
// expiry fires after the owning component is torn down.
type AlertCenter struct {
	mu      sync.Mutex
	current *Alert
	timer   *time.Timer
	closed  bool
}

// NewAlertCenter returns an empty alert center.
func NewAlertCenter() *AlertCenter {
	return &AlertCenter{}
}

// Publish replaces the current alert and restarts the expiry timer.
func (a *AlertCenter) Publish(kind AlertKind, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.current = &Alert{Kind: kind, Message: message, Expiry: time.Now().Add(alertTTL)}
	a.timer = time.AfterFunc(alertTTL, a.expire)
}

func (a *AlertCenter) expire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
}

// Current returns the live alert, if any.
func (a *AlertCenter) Current() (Alert, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return Alert{}, false
	}
	return *a.current, true
}

// Clear drops the current alert without waiting for expiry.
func (a *AlertCenter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.current = nil
}

// Close stops the expiry timer and rejects further publishes.
func (a *AlertCenter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.current = nil
}
