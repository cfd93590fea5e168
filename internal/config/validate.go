package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims string fields, fills defaults, and returns the
// normalized copy with anything the UI should surface.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(out.Backend.BaseURL), "/")
	out.Caller.UserID = strings.TrimSpace(out.Caller.UserID)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Backend.BaseURL == "" {
		res.addErr("backend.base_url is required")
	} else if u, err := url.Parse(out.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		res.addErr("backend.base_url must be an absolute URL: %q", out.Backend.BaseURL)
	}

	if out.Backend.TimeoutSeconds <= 0 {
		out.Backend.TimeoutSeconds = 30
	}
	if out.Backend.RequestsPerSec <= 0 {
		out.Backend.RequestsPerSec = 2.0
	} else if out.Backend.RequestsPerSec > 20 {
		res.addWarn("backend.requests_per_sec is very high (%.0f); the tracking service may throttle you.", out.Backend.RequestsPerSec)
	}
	if out.Backend.Burst <= 0 {
		out.Backend.Burst = 4
	}

	if out.Caller.UserID == "" {
		res.addWarn("caller.user_id is empty; competitor and summary flows stay disabled until the UI signs in.")
	}

	return out, res
}
