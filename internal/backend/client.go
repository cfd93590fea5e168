package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"competitoriq-engine/internal/domain"
	"competitoriq-engine/internal/logger"

	"go.uber.org/zap"
)

// TokenSource yields the current identity token, or "" when signed out.
type TokenSource func() string

// Client talks to the remote competitor-tracking service. All mutating
// state lives on the service side; the client is stateless.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *HostLimiter
	token   TokenSource
	log     logger.Logger
}

func New(baseURL string, timeout time.Duration, limiter *HostLimiter, token TokenSource, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		token:   token,
		log:     log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, u); err != nil {
			return nil, &RemoteError{Msg: err.Error()}
		}
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Msg: err.Error()}
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &RemoteError{Status: resp.StatusCode, Msg: "malformed response: " + err.Error()}
	}
	return nil
}

// wireFields is the service's link-field object: the seven named slots plus
// homepage and the custom list folded in (PATCH and list both use it).
type wireFields struct {
	Pricing      string   `json:"pricing"`
	Blog         string   `json:"blog"`
	ReleaseNotes string   `json:"releaseNotes"`
	Playstore    string   `json:"playstore"`
	Appstore     string   `json:"appstore"`
	Linkedin     string   `json:"linkedin"`
	Twitter      string   `json:"twitter"`
	Homepage     string   `json:"homepage,omitempty"`
	Custom       []string `json:"custom"`
}

func (w wireFields) toMap() map[string]string {
	return map[string]string{
		"pricing":      w.Pricing,
		"blog":         w.Blog,
		"releaseNotes": w.ReleaseNotes,
		"playstore":    w.Playstore,
		"appstore":     w.Appstore,
		"linkedin":     w.Linkedin,
		"twitter":      w.Twitter,
	}
}

func fieldsToWire(fields map[string]string, homepage string, custom []string) wireFields {
	if custom == nil {
		custom = []string{}
	}
	return wireFields{
		Pricing:      fields["pricing"],
		Blog:         fields["blog"],
		ReleaseNotes: fields["releaseNotes"],
		Playstore:    fields["playstore"],
		Appstore:     fields["appstore"],
		Linkedin:     fields["linkedin"],
		Twitter:      fields["twitter"],
		Homepage:     homepage,
		Custom:       custom,
	}
}

// Scan asks the service to extract link fields from a competitor homepage.
// The raw response body is kept so a later create can forward it verbatim.
func (c *Client) Scan(ctx context.Context, homepage string) (domain.ScanResult, error) {
	if strings.TrimSpace(homepage) == "" {
		return domain.ScanResult{}, &ValidationError{Msg: "homepage URL is required"}
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/competitors/scan", nil, map[string]string{"homepage": homepage})
	if err != nil {
		return domain.ScanResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ScanResult{}, errorFromResponse(resp, "scan failed")
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ScanResult{}, &RemoteError{Msg: err.Error()}
	}

	res := domain.ScanResult{Raw: raw, Fields: map[string]string{}}

	var wrapped struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Fields) > 0 {
		for k, v := range wrapped.Fields {
			if s, ok := v.(string); ok {
				res.Fields[k] = s
			}
		}
		return res, nil
	}

	// Some deployments return the mapping flat.
	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err == nil {
		for k, v := range flat {
			if s, ok := v.(string); ok {
				res.Fields[k] = s
			}
		}
	}
	return res, nil
}

type CreateRequest struct {
	UserID      string
	Name        string
	Homepage    string
	Fields      map[string]string
	CustomLinks []string
	Snapshot    json.RawMessage
}

// CreateCompetitor registers a new competitor. A 409 from the service maps
// to ConflictError carrying the service's message.
func (c *Client) CreateCompetitor(ctx context.Context, req CreateRequest) (string, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return "", &ValidationError{Msg: "not signed in"}
	}
	if strings.TrimSpace(req.Name) == "" {
		return "", &ValidationError{Msg: "competitor name is required"}
	}
	if strings.TrimSpace(req.Homepage) == "" {
		return "", &ValidationError{Msg: "homepage URL is required"}
	}

	body := map[string]any{
		"userId":   req.UserID,
		"name":     req.Name,
		"homepage": req.Homepage,
		"fields":   fieldsToWire(req.Fields, "", domain.CompactCustomLinks(req.CustomLinks)),
		"snapshot": req.Snapshot,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/competitors", nil, body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return "", errorFromResponse(resp, "failed to add competitor")
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// TriggerSnapshot requests the first crawl of a freshly created competitor.
// Callers treat it as fire-and-forget; the error is informational only.
func (c *Client) TriggerSnapshot(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/competitors/"+url.PathEscape(id)+"/snapshot", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp, "snapshot trigger failed")
	}
	return nil
}

func (c *Client) ListCompetitors(ctx context.Context, userID string) ([]domain.Competitor, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Msg: "not signed in"}
	}

	q := url.Values{"userId": {userID}}
	resp, err := c.do(ctx, http.MethodGet, "/api/competitors/list", q, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp, "failed to fetch competitors")
	}

	var out struct {
		Competitors []struct {
			ID       string     `json:"id"`
			Name     string     `json:"name"`
			Homepage string     `json:"homepage"`
			Fields   wireFields `json:"fields"`
		} `json:"competitors"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	comps := make([]domain.Competitor, 0, len(out.Competitors))
	for _, w := range out.Competitors {
		home := w.Homepage
		if home == "" {
			home = w.Fields.Homepage
		}
		comps = append(comps, domain.Competitor{
			ID:          w.ID,
			Name:        w.Name,
			Homepage:    home,
			Fields:      w.Fields.toMap(),
			CustomLinks: append([]string(nil), w.Fields.Custom...),
		})
	}
	return comps, nil
}

type UpdateRequest struct {
	ID          string
	Name        string
	Homepage    string
	Fields      map[string]string
	CustomLinks []string
}

func (c *Client) UpdateCompetitor(ctx context.Context, req UpdateRequest) error {
	if strings.TrimSpace(req.ID) == "" {
		return &ValidationError{Msg: "competitor id is required"}
	}
	if strings.TrimSpace(req.Name) == "" {
		return &ValidationError{Msg: "competitor name is required"}
	}

	body := map[string]any{
		"name":   req.Name,
		"fields": fieldsToWire(req.Fields, req.Homepage, domain.CompactCustomLinks(req.CustomLinks)),
	}

	resp, err := c.do(ctx, http.MethodPatch, "/api/competitors/"+url.PathEscape(req.ID), nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp, "failed to update competitor")
	}
	return nil
}

func (c *Client) DeleteCompetitor(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Msg: "competitor id is required"}
	}

	resp, err := c.do(ctx, http.MethodDelete, "/api/competitors/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp, "failed to delete competitor")
	}
	return nil
}

// GetPreferences returns the caller's record, or the defaults when the
// service has none (including on 404).
func (c *Client) GetPreferences(ctx context.Context, userID string) (domain.Preferences, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Preferences{}, &ValidationError{Msg: "not signed in"}
	}

	q := url.Values{"userId": {userID}}
	resp, err := c.do(ctx, http.MethodGet, "/api/user/preferences", q, nil)
	if err != nil {
		return domain.Preferences{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return domain.DefaultPreferences(), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return domain.Preferences{}, errorFromResponse(resp, "failed to fetch preferences")
	}

	var out struct {
		Preferences struct {
			UpdateFreq   string `json:"updateFreq"`
			ReceiveEmail *bool  `json:"receiveEmail"`
		} `json:"preferences"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return domain.Preferences{}, err
	}

	prefs := domain.DefaultPreferences()
	if domain.ValidFreq(out.Preferences.UpdateFreq) {
		prefs.UpdateFreq = out.Preferences.UpdateFreq
	}
	if out.Preferences.ReceiveEmail != nil {
		prefs.ReceiveEmail = *out.Preferences.ReceiveEmail
	}
	return prefs, nil
}

func (c *Client) SavePreferences(ctx context.Context, userID string, prefs domain.Preferences) error {
	if strings.TrimSpace(userID) == "" {
		return &ValidationError{Msg: "not signed in"}
	}
	if !domain.ValidFreq(prefs.UpdateFreq) {
		return &ValidationError{Msg: fmt.Sprintf("invalid update frequency %q", prefs.UpdateFreq)}
	}

	body := map[string]any{
		"userId":      userID,
		"preferences": prefs,
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/user/preferences", nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp, "failed to save preferences")
	}
	return nil
}

func (c *Client) ListSummaries(ctx context.Context, userID string) ([]domain.Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Msg: "not signed in"}
	}

	q := url.Values{"userId": {userID}}
	resp, err := c.do(ctx, http.MethodGet, "/api/competitors/summaries", q, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp, "failed to fetch summaries")
	}

	var out struct {
		Summaries []struct {
			Company string   `json:"company"`
			Date    *string  `json:"date"`
			Summary []string `json:"summary"`
		} `json:"summaries"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	recs := make([]domain.Summary, 0, len(out.Summaries))
	for _, s := range out.Summaries {
		date := ""
		if s.Date != nil {
			date = *s.Date
		}
		recs = append(recs, domain.Summary{Company: s.Company, Date: date, Summary: s.Summary})
	}
	if c.log != nil {
		c.log.Debug("summaries fetched", zap.Int("count", len(recs)))
	}
	return recs, nil
}
