package pitv

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// BackendPath is the websocket path served next to the player page.
const BackendPath = "/backend"

// Level is an alert severity.
type Level string

// Alert levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ParseLevel returns the matching level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelSuccess:
		return LevelSuccess
	case LevelWarning:
		return LevelWarning
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Alert is a transient notification.
type Alert struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Level   Level  `json:"level"`
}

// Preferences are client-owned values that survive restarts. The server never writes them.
type Preferences struct {
	Credential         string `json:"credential"`
	ShowPowerOnWarning bool   `json:"showPowerOnWarning"`
}

// Bootstrap carries values pulled from a URL fragment (#pw=...&warn).
type Bootstrap struct {
	Credential string
	Warn       bool
}

// ParseBootstrap strips the fragment from rawURL and returns the cleaned URL
// together with the pw and warn parameters found in it.
func ParseBootstrap(rawURL string) (string, Bootstrap, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", Bootstrap{}, fmt.Errorf("invalid url: %w", err)
	}
	var boot Bootstrap
	if u.Fragment != "" {
		values, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return "", Bootstrap{}, fmt.Errorf("invalid url fragment: %w", err)
		}
		boot.Credential = values.Get("pw")
		_, boot.Warn = values["warn"]
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), boot, nil
}

// EndpointURL derives the websocket endpoint from a player page URL.
// http(s) URLs map to ws(s) with the backend path appended; ws(s) URLs are used as given.
func EndpointURL(pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return "", errors.New("url host is required")
	}
	u.Fragment = ""
	u.RawFragment = ""
	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + BackendPath
	u.RawPath = ""
	u.RawQuery = ""
	return u.String(), nil
}
