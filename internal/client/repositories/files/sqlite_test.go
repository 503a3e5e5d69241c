package files

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/photosafe/photosafe/internal/client/models"
	"github.com/photosafe/photosafe/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE files (
  id INTEGER PRIMARY KEY,
  collection_id INTEGER NOT NULL,
  encrypted_key BLOB NOT NULL,
  key_decryption_nonce BLOB NOT NULL,
  object_key TEXT NOT NULL,
  decryption_header BLOB NOT NULL,
  thumbnail_object_key TEXT NOT NULL DEFAULT '',
  thumbnail_decryption_header BLOB,
  hash TEXT NOT NULL,
  title TEXT NOT NULL,
  creation_time INTEGER NOT NULL DEFAULT 0,
  updation_time INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX idx_files_collection_hash ON files (collection_id, hash);
`)
	require.NoError(t, err)
	return db
}

func sampleFile(id, collectionID int64, hash string) *models.RemoteFile {
	return &models.RemoteFile{
		ID:                 id,
		CollectionID:       collectionID,
		EncryptedKey:       []byte("ek"),
		KeyDecryptionNonce: []byte("nonce"),
		ObjectKey:          "obj",
		DecryptionHeader:   []byte("hdr"),
		Hash:               hash,
		Title:              "a.jpg",
		CreationTime:       100,
		UpdationTime:       200,
	}
}

func TestUpsert_InsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	f := sampleFile(1, 5, "h1")
	require.NoError(t, r.Upsert(ctx, f))

	f.Title = "renamed.jpg"
	require.NoError(t, r.Upsert(ctx, f))

	got, err := r.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "renamed.jpg", got.Title)
	assert.Equal(t, []byte("ek"), got.EncryptedKey)

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM files`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByCollection(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleFile(1, 5, "h1")))
	require.NoError(t, r.Upsert(ctx, sampleFile(2, 5, "h2")))
	require.NoError(t, r.Upsert(ctx, sampleFile(3, 6, "h3")))

	got, err := r.ListByCollection(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestHasHash_ScopedToCollection(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleFile(1, 5, "h1")))

	ok, err := r.HasHash(ctx, 5, "h1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same hash in another collection is not a duplicate.
	ok, err = r.HasHash(ctx, 6, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.HasHash(ctx, 5, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteByIDs(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleFile(1, 5, "h1")))
	require.NoError(t, r.Upsert(ctx, sampleFile(2, 5, "h2")))

	require.NoError(t, r.DeleteByIDs(ctx, []int64{1, 2}))
	got, err := r.ListByCollection(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, r.DeleteByIDs(ctx, nil))
}

func TestHasHash_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("select 1 from files").WillReturnError(sql.ErrConnDone)

	r := NewSQLiteRepository(db)
	_, err = r.HasHash(context.Background(), 1, "h")
	require.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}
