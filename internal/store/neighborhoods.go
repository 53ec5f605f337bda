package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UpsertNeighborhood inserts or replaces a neighborhood row. Used by
// onboarding tooling only; the pipeline treats neighborhoods as read-only.
func (s *Store) UpsertNeighborhood(ctx context.Context, n Neighborhood) error {
	if strings.TrimSpace(n.ID) == "" {
		return errors.New("neighborhood id required")
	}
	var feeds any
	if len(n.FeedURLs) > 0 {
		data, err := json.Marshal(n.FeedURLs)
		if err != nil {
			return fmt.Errorf("marshal feed urls: %w", err)
		}
		feeds = string(data)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO neighborhoods (id, name, city, country, timezone, active, feeds_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             name = excluded.name, city = excluded.city, country = excluded.country,
             timezone = excluded.timezone, active = excluded.active, feeds_json = excluded.feeds_json`,
		n.ID,
		n.Name,
		n.City,
		nullableString(n.Country),
		n.Timezone,
		boolToInt(n.Active),
		feeds,
	)
	if err != nil {
		return fmt.Errorf("upsert neighborhood: %w", err)
	}
	return nil
}

// GetNeighborhood fetches a neighborhood by id. Returns nil when absent.
func (s *Store) GetNeighborhood(ctx context.Context, id string) (*Neighborhood, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, name, city, country, timezone, active, feeds_json FROM neighborhoods WHERE id = ?`,
		id,
	)
	n, err := scanNeighborhood(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get neighborhood: %w", err)
	}
	return n, nil
}

// ListNeighborhoods returns neighborhoods ordered by id, optionally
// restricted to active ones.
func (s *Store) ListNeighborhoods(ctx context.Context, activeOnly bool) ([]Neighborhood, error) {
	query := `SELECT id, name, city, country, timezone, active, feeds_json FROM neighborhoods`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list neighborhoods: %w", err)
	}
	defer rows.Close()

	var out []Neighborhood
	for rows.Next() {
		n, err := scanNeighborhood(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func scanNeighborhood(scanner interface{ Scan(dest ...any) error }) (*Neighborhood, error) {
	var (
		id       string
		name     string
		city     string
		country  sql.NullString
		timezone string
		active   sql.NullInt64
		feeds    sql.NullString
	)
	if err := scanner.Scan(&id, &name, &city, &country, &timezone, &active, &feeds); err != nil {
		return nil, err
	}
	n := &Neighborhood{
		ID:       id,
		Name:     name,
		City:     city,
		Country:  country.String,
		Timezone: timezone,
		Active:   active.Valid && active.Int64 != 0,
	}
	if feeds.Valid && feeds.String != "" {
		if err := json.Unmarshal([]byte(feeds.String), &n.FeedURLs); err != nil {
			return nil, fmt.Errorf("decode feed urls for %s: %w", id, err)
		}
	}
	return n, nil
}
