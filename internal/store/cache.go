package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"competitoriq-engine/internal/domain"
)

// The cache is a last-good mirror of the remote store: each table is
// replaced wholesale inside one transaction on every successful fetch.
// Nothing here ever answers a mutation.

func (d *DB) ReplaceCompetitors(ctx context.Context, comps []domain.Competitor) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM competitors;`); err != nil {
		return err
	}
	for i, c := range comps {
		fieldsB, _ := json.Marshal(c.Fields)
		customB, _ := json.Marshal(c.CustomLinks)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO competitors(id, name, homepage, fields, custom_links, position)
VALUES(?,?,?,?,?,?);`,
			c.ID, c.Name, c.Homepage, string(fieldsB), string(customB), i,
		); err != nil {
			return fmt.Errorf("insert competitor: %w", err)
		}
	}
	return tx.Commit()
}

func (d *DB) LoadCompetitors(ctx context.Context) ([]domain.Competitor, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, name, homepage, fields, custom_links
FROM competitors
ORDER BY position;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Competitor
	for rows.Next() {
		var c domain.Competitor
		var fieldsJSON, customJSON string
		if err := rows.Scan(&c.ID, &c.Name, &c.Homepage, &fieldsJSON, &customJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(fieldsJSON), &c.Fields)
		_ = json.Unmarshal([]byte(customJSON), &c.CustomLinks)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) ReplaceSummaries(ctx context.Context, recs []domain.Summary) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM summaries;`); err != nil {
		return err
	}
	for _, r := range recs {
		sumB, _ := json.Marshal(r.Summary)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO summaries(company, date, summary)
VALUES(?,?,?);`,
			r.Company, r.Date, string(sumB),
		); err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}
	}
	return tx.Commit()
}

func (d *DB) LoadSummaries(ctx context.Context) ([]domain.Summary, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT company, date, summary
FROM summaries
ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Summary
	for rows.Next() {
		var r domain.Summary
		var sumJSON string
		if err := rows.Scan(&r.Company, &r.Date, &sumJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(sumJSON), &r.Summary)
		out = append(out, r)
	}
	return out, rows.Err()
}

const justAddedKey = "just_added"

// SetJustAdded records the one-shot "competitor just added" marker shown on
// the next dashboard load.
func (d *DB) SetJustAdded(ctx context.Context, name string) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO meta(key, value) VALUES(?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
		justAddedKey, name)
	return err
}

// TakeJustAdded returns the marker and clears it, so it displays once.
func (d *DB) TakeJustAdded(ctx context.Context) (string, error) {
	var name string
	err := d.Pool.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = ?;`, justAddedKey,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	_, err = d.Pool.ExecContext(ctx, `DELETE FROM meta WHERE key = ?;`, justAddedKey)
	return name, err
}
