package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher with a plain ILIKE scan as the fallback when
// Meilisearch is down or not configured. Request fields are short free text,
// so substring matching is good enough here.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

func (p *PgSearch) Search(q Query) ([]RequestRecord, int, error) {
	if strings.TrimSpace(q.Text) == "" && q.Specialization == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := []string{}
	args := []any{}

	if strings.TrimSpace(q.Text) != "" {
		args = append(args, likePattern(q.Text))
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(name ILIKE $%d OR city ILIKE $%d OR description ILIKE $%d OR phone ILIKE $%d)", n, n, n, n))
	}
	if q.Specialization != "" {
		args = append(args, q.Specialization)
		where = append(where, fmt.Sprintf("specialization = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT id, name, city, description, phone, specialization, status, COUNT(*) OVER() AS total
		FROM requests
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d`, strings.Join(where, " AND "), limit, offset)

	rows, err := p.db.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search: %w", err)
	}
	defer rows.Close()

	results := []RequestRecord{}
	total := 0
	for rows.Next() {
		var record RequestRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.City, &record.Description,
			&record.Phone, &record.Specialization, &record.Status, &total); err != nil {
			return nil, 0, fmt.Errorf("pg search scan: %w", err)
		}
		results = append(results, record)
	}
	return results, total, rows.Err()
}

// LoadAllRecords reads every request for reindexing into Meilisearch.
func (p *PgSearch) LoadAllRecords(ctx context.Context) ([]RequestRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, city, description, phone, specialization, status FROM requests`)
	if err != nil {
		return nil, fmt.Errorf("load requests for reindex: %w", err)
	}
	defer rows.Close()

	records := []RequestRecord{}
	for rows.Next() {
		var record RequestRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.City, &record.Description,
			&record.Phone, &record.Specialization, &record.Status); err != nil {
			return nil, fmt.Errorf("scan reindex row: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// likePattern wraps the query for substring match, escaping LIKE wildcards.
func likePattern(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(text))
	return "%" + escaped + "%"
}
