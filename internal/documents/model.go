package documents

import (
	"io"
	"time"
)

// Document is the metadata record of one stored upload. It is created only
// after its object exists in the store.
type Document struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"originalName"`
	StoragePath  string    `json:"storagePath"`
	OwnerID      string    `json:"ownerId"`
	Metadata     Metadata  `json:"metadata"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Metadata describes the stored file.
type Metadata struct {
	Size  int64  `json:"size"`
	Type  string `json:"type"`
	Pages int    `json:"pages,omitempty"`
}

// NewDocument carries the fields a repo needs to create a Document; the repo
// assigns ID and CreatedAt.
type NewDocument struct {
	OriginalName string
	StoragePath  string
	OwnerID      string
	Metadata     Metadata
}

// IngestRequest is one uploaded file as received from the client.
type IngestRequest struct {
	FileName     string
	ContentType  string
	DeclaredSize int64
	Body         io.Reader
}

// IngestResult reports a completed ingest. A document that was saved but not
// handed to the worker tier has Dispatched=false and DispatchErr set.
type IngestResult struct {
	Document    Document
	Dispatched  bool
	DispatchErr error
}
