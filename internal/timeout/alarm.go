package timeout

import (
	"sync"
	"time"
)

// TimerAlarm implements Alarm with one time.Timer. When it fires it calls
// fire on the timer's goroutine; fire should only hand off a notification.
type TimerAlarm struct {
	mu    sync.Mutex
	timer *time.Timer
	fire  func()
}

// NewTimerAlarm returns an unarmed alarm.
func NewTimerAlarm(fire func()) *TimerAlarm {
	return &TimerAlarm{fire: fire}
}

func (a *TimerAlarm) Arm(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(d, a.fire)
}

func (a *TimerAlarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
