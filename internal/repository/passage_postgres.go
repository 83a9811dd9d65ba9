package repository

import (
	"context"
	"fmt"

	"github.com/futig/medrag/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PassagePostgres searches the passages table by cosine distance.
type PassagePostgres struct {
	db    *pgxpool.Pool
	query string
}

func NewPassagePostgres(db *pgxpool.Pool, table string) *PassagePostgres {
	return &PassagePostgres{
		db: db,
		query: fmt.Sprintf(`
		SELECT content, source, page
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgx.Identifier{table}.Sanitize()),
	}
}

func (r *PassagePostgres) Search(ctx context.Context, vector []float32, k int) ([]entity.Passage, error) {
	rows, err := r.db.Query(ctx, r.query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	passages := make([]entity.Passage, 0, k)
	for rows.Next() {
		var (
			p    entity.Passage
			page pgtype.Int4
		)
		if err := rows.Scan(&p.Text, &p.Source, &page); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		if page.Valid {
			p.Locator = entity.PageLocator(int(page.Int32))
		}
		passages = append(passages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passages: %w", err)
	}

	return passages, nil
}

func (r *PassagePostgres) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
