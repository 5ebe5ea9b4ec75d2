package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/harvest-service/internal/entity"
)

// KeywordRepoImpl implements repository.KeywordRepository.
type KeywordRepoImpl struct {
	db *pgxpool.Pool
}

func NewKeywordRepo(db *pgxpool.Pool) *KeywordRepoImpl {
	return &KeywordRepoImpl{db: db}
}

func (r *KeywordRepoImpl) FindActive(ctx context.Context) ([]entity.Keyword, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, text, category, is_active, match_count, created_at
		FROM keywords
		WHERE is_active
		ORDER BY id`)
	if err != nil {
		return nil, wrapErr("find active keywords", err)
	}
	defer rows.Close()

	var out []entity.Keyword
	for rows.Next() {
		var k entity.Keyword
		if err := rows.Scan(&k.ID, &k.Text, &k.Category, &k.IsActive, &k.MatchCount, &k.CreatedAt); err != nil {
			return nil, wrapErr("find active keywords", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("find active keywords", err)
	}
	return out, nil
}

func (r *KeywordRepoImpl) IncrementMatchCount(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx,
		`UPDATE keywords SET match_count = match_count + 1 WHERE id = ANY($1)`, ids); err != nil {
		return wrapErr("increment match count", err)
	}
	return nil
}

func (r *KeywordRepoImpl) ResetMatchCount(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE keywords SET match_count = 0 WHERE id = $1`, id)
	if err != nil {
		return wrapErr("reset match count", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrNotFound
	}
	return nil
}
