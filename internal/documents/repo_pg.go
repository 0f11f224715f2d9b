package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectDocumentColumns = `SELECT id, content, file_path, owner_id, metadata, created_at FROM documents`

// Create inserts a new document and returns it with the id and timestamp
// assigned by the database.
func (r *PGRepo) Create(ctx context.Context, in NewDocument) (Document, error) {
	const query = `
INSERT INTO documents (
    content,
    file_path,
    owner_id,
    metadata
) VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	metadata, err := json.Marshal(in.Metadata)
	if err != nil {
		return Document{}, fmt.Errorf("encode metadata: %w", err)
	}

	doc := Document{
		OriginalName: in.OriginalName,
		StoragePath:  in.StoragePath,
		OwnerID:      in.OwnerID,
		Metadata:     in.Metadata,
	}
	err = r.DB.QueryRowContext(ctx, query,
		in.OriginalName,
		in.StoragePath,
		in.OwnerID,
		string(metadata),
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ListAll lists documents ordered newest-first.
func (r *PGRepo) ListAll(ctx context.Context) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, selectDocumentColumns+`
ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// GetByID fetches a document by id.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	row := r.DB.QueryRowContext(ctx, selectDocumentColumns+`
WHERE id = $1
LIMIT 1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc      Document
		content  sql.NullString
		filePath sql.NullString
		ownerID  sql.NullString
		metadata []byte
	)
	if err := row.Scan(&doc.ID, &content, &filePath, &ownerID, &metadata, &doc.CreatedAt); err != nil {
		return Document{}, err
	}
	doc.OriginalName = content.String
	doc.StoragePath = filePath.String
	doc.OwnerID = ownerID.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("decode metadata for document %d: %w", doc.ID, err)
		}
	}
	return doc, nil
}

var _ DocumentsRepo = (*PGRepo)(nil)
