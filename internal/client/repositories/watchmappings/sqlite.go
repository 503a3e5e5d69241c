package watchmappings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.WatchMapping, error) {

	rows, err := r.db.QueryContext(ctx, `select folder_path, root_name, strategy from watch_mappings`)
	if err != nil {
		return nil, fmt.Errorf("error selecting watch mappings: %w", err)
	}
	defer rows.Close()

	var result []*models.WatchMapping
	for rows.Next() {
		m := &models.WatchMapping{}
		var strategy int
		if err := rows.Scan(&m.FolderPath, &m.RootName, &strategy); err != nil {
			return nil, err
		}
		m.Strategy = models.UploadStrategy(strategy)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range result {
		if err := r.loadFiles(ctx, m); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *SQLiteRepository) loadFiles(ctx context.Context, m *models.WatchMapping) error {
	rows, err := r.db.QueryContext(ctx,
		`select path, remote_id from watch_files where folder_path=? order by path`, m.FolderPath)
	if err != nil {
		return fmt.Errorf("error selecting watch files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.SyncedFile
		if err := rows.Scan(&f.Path, &f.RemoteID); err != nil {
			return err
		}
		m.Files = append(m.Files, f)
	}
	return rows.Err()
}

// Upsert writes the mapping and replaces its synced-file rows in one
// transaction.
func (r *SQLiteRepository) Upsert(ctx context.Context, m *models.WatchMapping) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, ` INSERT INTO watch_mappings (folder_path, root_name, strategy)
				values (?, ?, ?)
				ON CONFLICT(folder_path) DO UPDATE SET root_name = excluded.root_name,
					strategy = excluded.strategy
		`, m.FolderPath, m.RootName, int(m.Strategy))
		if err != nil {
			return fmt.Errorf("failed to upsert watch mapping: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `delete from watch_files where folder_path=?`, m.FolderPath); err != nil {
			return fmt.Errorf("failed to clear watch files: %w", err)
		}
		for _, f := range m.Files {
			_, err := tx.ExecContext(ctx,
				`insert into watch_files (folder_path, path, remote_id) values (?, ?, ?)`,
				m.FolderPath, f.Path, f.RemoteID)
			if err != nil {
				return fmt.Errorf("failed to insert watch file: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, folderPath string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `delete from watch_files where folder_path=?`, folderPath); err != nil {
			return fmt.Errorf("failed to delete watch files: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `delete from watch_mappings where folder_path=?`, folderPath); err != nil {
			return fmt.Errorf("failed to delete watch mapping: %w", err)
		}
		return nil
	})
}
