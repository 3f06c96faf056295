package ports

import (
	"time"

	"github.com/mikey-austin/pitv/pkg/pitv"
)

// Transport sends text frames over the current connection.
// Send before the connection is open is a caller error.
type Transport interface {
	Send(text string) error
}

// TransportHandler receives exactly one callback per underlying transport event.
type TransportHandler interface {
	OnOpen()
	OnMessage(text string)
	OnClose(err error)
	OnError(err error)
}

// Timer is a scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// PreferencesStore persists client preferences per endpoint.
type PreferencesStore interface {
	Get(endpoint string) (pitv.Preferences, bool, error)
	Put(endpoint string, prefs pitv.Preferences) error
	Clear(endpoint string) error
}
