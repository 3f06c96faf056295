package clock

import (
	"time"

	"github.com/mikey-austin/pitv/internal/ports"
)

// Clock schedules callbacks on the wall clock.
type Clock struct{}

// AfterFunc runs f in its own goroutine once d has elapsed.
func (Clock) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}
