package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateReturnsAssignedID(t *testing.T) {
	repo, mock := newMockRepo(t)
	createdAt := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("manual.pdf", "1-manual.pdf", "user-42", `{"size":2097152,"type":"application/pdf","pages":3}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), createdAt))

	doc, err := repo.Create(context.Background(), NewDocument{
		OriginalName: "manual.pdf",
		StoragePath:  "1-manual.pdf",
		OwnerID:      "user-42",
		Metadata:     Metadata{Size: 2097152, Type: "application/pdf", Pages: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), doc.ID)
	assert.Equal(t, createdAt, doc.CreatedAt)
	assert.Equal(t, "1-manual.pdf", doc.StoragePath)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoCreatePropagatesError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO documents").WillReturnError(errors.New("connection reset"))

	_, err := repo.Create(context.Background(), NewDocument{OriginalName: "a.pdf", StoragePath: "k", OwnerID: "u"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoListAllNewestFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	newer := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "content", "file_path", "owner_id", "metadata", "created_at"}).
		AddRow(int64(2), "b.pdf", "2-b.pdf", "user-1", []byte(`{"size":10,"type":"application/pdf"}`), newer).
		AddRow(int64(1), nil, "1-a.pdf", "user-2", nil, older)
	mock.ExpectQuery("SELECT id, content, file_path, owner_id, metadata, created_at FROM documents\\s+ORDER BY created_at DESC, id DESC").
		WillReturnRows(rows)

	docs, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(2), docs[0].ID)
	assert.Equal(t, Metadata{Size: 10, Type: "application/pdf"}, docs[0].Metadata)
	assert.Equal(t, "", docs[1].OriginalName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGRepoListAllEmptyIsNotNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "file_path", "owner_id", "metadata", "created_at"}))

	docs, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("WHERE id = \\$1").WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
