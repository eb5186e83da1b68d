package principles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/principlequiz/backend/internal/models"
)

var ErrNotFound = errors.New("principle not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectCols = `id, title, type, one_liner, definition, category, tags, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrinciple(row rowScanner) (*models.Principle, error) {
	var p models.Principle
	var tags []byte
	if err := row.Scan(&p.ID, &p.Title, &p.Type, &p.OneLiner, &p.Definition,
		&p.Category, &tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (s *Store) queryPrinciples(ctx context.Context, query string, args ...any) ([]models.Principle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Principle
	for rows.Next() {
		p, err := scanPrinciple(rows)
		if err != nil {
			return nil, fmt.Errorf("scan principle: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, filter models.PrincipleFilter) ([]models.Principle, error) {
	var where []string
	var args []any

	if filter.Type != nil {
		args = append(args, *filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + selectCols + ` FROM principles`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY title`

	principles, err := s.queryPrinciples(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list principles: %w", err)
	}
	return principles, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Principle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectCols+` FROM principles WHERE id = $1`, id)
	p, err := scanPrinciple(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get principle: %w", err)
	}
	return p, nil
}

// GetByIDs returns the principles in ids, in the order given. Unknown IDs are
// skipped; callers compare lengths when every ID must exist.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]models.Principle, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := s.queryPrinciples(ctx,
		`SELECT `+selectCols+` FROM principles WHERE id = ANY($1::text[])`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get principles by id: %w", err)
	}

	byID := make(map[string]models.Principle, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	ordered := make([]models.Principle, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// ListWithoutQuestions returns principles that have no stored questions yet.
func (s *Store) ListWithoutQuestions(ctx context.Context) ([]models.Principle, error) {
	principles, err := s.queryPrinciples(ctx,
		`SELECT `+selectCols+` FROM principles p
		 WHERE NOT EXISTS (SELECT 1 FROM questions q WHERE q.principle_id = p.id)
		 ORDER BY p.title`)
	if err != nil {
		return nil, fmt.Errorf("list principles without questions: %w", err)
	}
	return principles, nil
}

// Upsert inserts p or updates the existing row with the same ID. It reports
// whether a new row was created.
func (s *Store) Upsert(ctx context.Context, p models.Principle) (bool, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return false, fmt.Errorf("encode tags: %w", err)
	}

	var inserted bool
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO principles (id, title, type, one_liner, definition, category, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title, type = EXCLUDED.type, one_liner = EXCLUDED.one_liner,
		     definition = EXCLUDED.definition, category = EXCLUDED.category,
		     tags = EXCLUDED.tags, updated_at = NOW()
		 RETURNING (xmax = 0)`,
		p.ID, p.Title, p.Type, p.OneLiner, p.Definition, p.Category, string(tagsJSON),
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert principle %s: %w", p.ID, err)
	}
	return inserted, nil
}

// Count returns the number of stored principles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM principles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count principles: %w", err)
	}
	return n, nil
}
