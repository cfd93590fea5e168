package domain

import (
	"encoding/json"
	"strings"
)

// MaxCustomLinks caps the number of free-form links a competitor may carry.
const MaxCustomLinks = 5

// FieldKeys is the fixed set of named link slots besides the homepage.
var FieldKeys = []string{
	"pricing",
	"blog",
	"releaseNotes",
	"playstore",
	"appstore",
	"linkedin",
	"twitter",
}

type Competitor struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Homepage    string            `json:"homepage"`
	Fields      map[string]string `json:"fields"`
	CustomLinks []string          `json:"customLinks"`
}

// Clone returns a deep copy, so edit flows never alias the cached list.
func (c Competitor) Clone() Competitor {
	out := c
	out.Fields = make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		out.Fields[k] = v
	}
	out.CustomLinks = append([]string(nil), c.CustomLinks...)
	return out
}

// CompactCustomLinks drops blank entries and truncates to MaxCustomLinks.
func CompactCustomLinks(links []string) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
		if len(out) == MaxCustomLinks {
			break
		}
	}
	return out
}

// ScanResult is the raw field mapping returned by the remote homepage scan.
// It is never persisted on its own; a save copies it into the create request.
type ScanResult struct {
	Fields map[string]string `json:"fields"`
	// Raw is the untouched scan response body, forwarded verbatim as the
	// create request's snapshot.
	Raw json.RawMessage `json:"raw,omitempty"`
}
