package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eagletask/internal/models"
)

// ErrDuplicateFilter means the (owner, filter) pair already exists.
var ErrDuplicateFilter = errors.New("filter already saved")

type FilterRepository interface {
	ListByOwner(ctx context.Context, owner int64) ([]models.Filter, error)
	Create(ctx context.Context, filter *models.Filter) error
	// DeleteByPhrase removes the owner's filter with the given phrase and
	// reports whether a row existed.
	DeleteByPhrase(ctx context.Context, owner int64, phrase string) (bool, error)
}

type filterRepository struct {
	db *sql.DB
}

func NewFilterRepository(db *sql.DB) FilterRepository {
	return &filterRepository{db: db}
}

func (r *filterRepository) ListByOwner(ctx context.Context, owner int64) ([]models.Filter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, filter FROM filters WHERE owner = $1 ORDER BY id ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var filters []models.Filter
	for rows.Next() {
		var f models.Filter
		if err := rows.Scan(&f.ID, &f.Owner, &f.Filter); err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

func (r *filterRepository) Create(ctx context.Context, filter *models.Filter) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO filters (owner, filter) VALUES ($1,$2) RETURNING id`,
		filter.Owner, filter.Filter,
	).Scan(&filter.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %q", ErrDuplicateFilter, filter.Filter)
		}
		return err
	}
	return nil
}

func (r *filterRepository) DeleteByPhrase(ctx context.Context, owner int64, phrase string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM filters WHERE owner = $1 AND filter = $2`, owner, phrase)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
