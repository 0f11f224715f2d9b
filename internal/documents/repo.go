package documents

import "context"

// DocumentsRepo defines persistence operations for documents.
type DocumentsRepo interface {
	Create(ctx context.Context, doc NewDocument) (Document, error)
	ListAll(ctx context.Context) ([]Document, error)
	GetByID(ctx context.Context, id int64) (Document, error)
}
