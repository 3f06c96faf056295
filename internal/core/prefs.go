package core

import (
	"go.uber.org/zap"

	"github.com/mikey-austin/pitv/internal/ports"
	"github.com/mikey-austin/pitv/pkg/pitv"
)

// Preferences is the write-through view of the persisted client preferences for one endpoint.
type Preferences struct {
	log      *zap.Logger
	store    ports.PreferencesStore
	endpoint string
	value    pitv.Preferences
}

// LoadPreferences reads the stored preferences for endpoint. A nil store keeps them in memory only.
func LoadPreferences(log *zap.Logger, store ports.PreferencesStore, endpoint string) (*Preferences, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Preferences{log: log, store: store, endpoint: endpoint}
	if store == nil {
		return p, nil
	}
	value, ok, err := store.Get(endpoint)
	if err != nil {
		return nil, err
	}
	if ok {
		p.value = value
	}
	return p, nil
}

// Value returns the current preferences.
func (p *Preferences) Value() pitv.Preferences {
	return p.value
}

// Credential returns the stored credential, or "".
func (p *Preferences) Credential() string {
	return p.value.Credential
}

// SetCredential stores a credential.
func (p *Preferences) SetCredential(credential string) {
	p.value.Credential = credential
	p.save()
}

// ClearCredential forgets the stored credential.
func (p *Preferences) ClearCredential() {
	p.SetCredential("")
}

// ShowPowerOnWarning reports whether the power-on warning should be shown.
func (p *Preferences) ShowPowerOnWarning() bool {
	return p.value.ShowPowerOnWarning
}

// SetShowPowerOnWarning updates the power-on warning flag.
func (p *Preferences) SetShowPowerOnWarning(show bool) {
	p.value.ShowPowerOnWarning = show
	p.save()
}

// Apply seeds preferences from a URL fragment bootstrap.
func (p *Preferences) Apply(boot pitv.Bootstrap) {
	if boot.Credential != "" {
		p.value.Credential = boot.Credential
	}
	if boot.Warn {
		p.value.ShowPowerOnWarning = true
	}
	if boot.Credential != "" || boot.Warn {
		p.save()
	}
}

func (p *Preferences) save() {
	if p.store == nil {
		return
	}
	var err error
	if p.value == (pitv.Preferences{}) {
		err = p.store.Clear(p.endpoint)
	} else {
		err = p.store.Put(p.endpoint, p.value)
	}
	if err != nil {
		p.log.Warn("failed to persist preferences", zap.String("endpoint", p.endpoint), zap.Error(err))
	}
}
