package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *SQLiteRepository) Upsert(ctx context.Context, f *models.RemoteFile) error {

	query := ` INSERT INTO files (id, collection_id, encrypted_key, key_decryption_nonce,
				object_key, decryption_header, thumbnail_object_key, thumbnail_decryption_header,
				hash, title, creation_time, updation_time)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET collection_id = excluded.collection_id,
				encrypted_key = excluded.encrypted_key,
				key_decryption_nonce = excluded.key_decryption_nonce,
				object_key = excluded.object_key,
				decryption_header = excluded.decryption_header,
				thumbnail_object_key = excluded.thumbnail_object_key,
				thumbnail_decryption_header = excluded.thumbnail_decryption_header,
				hash = excluded.hash,
				title = excluded.title,
				creation_time = excluded.creation_time,
				updation_time = excluded.updation_time
	`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.CollectionID, f.EncryptedKey, f.KeyDecryptionNonce,
		f.ObjectKey, f.DecryptionHeader, f.ThumbnailObjectKey, f.ThumbnailDecryptionHeader,
		f.Hash, f.Title, f.CreationTime, f.UpdationTime)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	return nil
}

const selectColumns = `id, collection_id, encrypted_key, key_decryption_nonce,
	object_key, decryption_header, thumbnail_object_key, thumbnail_decryption_header,
	hash, title, creation_time, updation_time`

func scanFile(row interface{ Scan(dest ...any) error }) (*models.RemoteFile, error) {
	f := &models.RemoteFile{}
	err := row.Scan(&f.ID, &f.CollectionID, &f.EncryptedKey, &f.KeyDecryptionNonce,
		&f.ObjectKey, &f.DecryptionHeader, &f.ThumbnailObjectKey, &f.ThumbnailDecryptionHeader,
		&f.Hash, &f.Title, &f.CreationTime, &f.UpdationTime)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.RemoteFile, error) {

	row := r.db.QueryRowContext(ctx, `select `+selectColumns+` from files where id=?`, id)

	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) ListByCollection(ctx context.Context, collectionID int64) ([]*models.RemoteFile, error) {

	query := `select ` + selectColumns + ` from files where collection_id=? order by creation_time`
	rows, err := r.db.QueryContext(ctx, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("error selecting files: %w", err)
	}
	defer rows.Close()

	var result []*models.RemoteFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) HasHash(ctx context.Context, collectionID int64, hash string) (bool, error) {

	var one int
	query := `select 1 from files where collection_id=? and hash=? limit 1`
	err := r.db.QueryRowContext(ctx, query, collectionID, hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check hash: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := r.db.ExecContext(ctx, `delete from files where id in (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}
