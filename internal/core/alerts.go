package core

import (
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/ports"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

// DefaultAlertTimeout is how long an alert stays visible unless dismissed.
const DefaultAlertTimeout = 5 * time.Second

// ScheduleFunc runs f once d has elapsed.
type ScheduleFunc func(d time.Duration, f func()) ports.Timer

// NotificationQueue holds auto-expiring alerts pushed by the server.
type NotificationQueue struct {
	log      *zap.Logger
	schedule ScheduleFunc
	nextID   int64
	alerts   []pitv.Alert
	timers   map[int64]ports.Timer
}

// NewNotificationQueue creates an empty queue. Expiry callbacks are scheduled with schedule.
func NewNotificationQueue(log *zap.Logger, schedule ScheduleFunc) *NotificationQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationQueue{
		log:      log,
		schedule: schedule,
		timers:   make(map[int64]ports.Timer),
	}
}

// Show appends an alert and schedules its removal. A non-positive timeout uses DefaultAlertTimeout.
func (q *NotificationQueue) Show(message string, level pitv.Level, timeout time.Duration) pitv.Alert {
	if timeout <= 0 {
		timeout = DefaultAlertTimeout
	}
	q.nextID++
	alert := pitv.Alert{
		ID:      q.nextID,
		Message: message,
		Level:   pitv.ParseLevel(string(level)),
	}
	q.alerts = append(q.alerts, alert)

	id := alert.ID
	if q.schedule != nil {
		q.timers[id] = q.schedule(timeout, func() { q.remove(id) })
	}
	q.log.Debug("alert shown",
		zap.Int64("id", id),
		zap.String("level", string(alert.Level)),
		zap.Duration("timeout", timeout),
	)
	return alert
}

// Dismiss removes an alert before its timer fires.
func (q *NotificationQueue) Dismiss(id int64) bool {
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
	}
	return q.remove(id)
}

// Alerts returns the visible alerts, oldest first.
func (q *NotificationQueue) Alerts() []pitv.Alert {
	return append([]pitv.Alert(nil), q.alerts...)
}

// Last returns the id of the most recently shown alert.
func (q *NotificationQueue) Last() int64 {
	return q.nextID
}

func (q *NotificationQueue) remove(id int64) bool {
	delete(q.timers, id)
	for i, alert := range q.alerts {
		if alert.ID == id {
			q.alerts = append(q.alerts[:i], q.alerts[i+1:]...)
			return true
		}
	}
	return false
}
