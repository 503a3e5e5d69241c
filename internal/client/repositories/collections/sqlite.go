package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/photosafe/photosafe/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Collection) error {

	query := ` INSERT INTO collections (id, name, key, last_sync_time)
			values (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name,
				key = excluded.key,
				last_sync_time = excluded.last_sync_time
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Key, c.LastSyncTime)
	if err != nil {
		return fmt.Errorf("failed to upsert collection: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*models.Collection, error) {

	row := r.db.QueryRowContext(ctx, `select id, name, key, last_sync_time from collections where name=?`, name)

	c := &models.Collection{}
	err := row.Scan(&c.ID, &c.Name, &c.Key, &c.LastSyncTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select collection: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Collection, error) {

	row := r.db.QueryRowContext(ctx, `select id, name, key, last_sync_time from collections where id=?`, id)

	c := &models.Collection{}
	err := row.Scan(&c.ID, &c.Name, &c.Key, &c.LastSyncTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select collection: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Collection, error) {

	rows, err := r.db.QueryContext(ctx, `select id, name, key, last_sync_time from collections order by name`)
	if err != nil {
		return nil, fmt.Errorf("error selecting collections: %w", err)
	}
	defer rows.Close()

	var result []*models.Collection
	for rows.Next() {
		c := &models.Collection{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Key, &c.LastSyncTime); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) UpdateLastSyncTime(ctx context.Context, id int64, t int64) error {

	result, err := r.db.ExecContext(ctx, `update collections set last_sync_time=? where id=?`, t, id)
	if err != nil {
		return fmt.Errorf("failed to update sync time: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return common.ErrNotFound
	}
	return nil
}
