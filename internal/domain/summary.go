package domain

// Summary is one change digest for a competitor, produced by the remote
// snapshot/diff pipeline and consumed read-only.
type Summary struct {
	Company string   `json:"company"`
	Date    string   `json:"date"` // ISO YYYY-MM-DD; empty when the backend has no date
	Summary []string `json:"summary"`
}
