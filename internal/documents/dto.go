package documents

const (
	ProcessingQueued  = "queued"
	ProcessingPending = "pending"
)

// UploadResponse is the body returned for a stored upload.
type UploadResponse struct {
	Message    string   `json:"message"`
	Document   Document `json:"document"`
	Processing string   `json:"processing"`
}

func toUploadResponse(result IngestResult) UploadResponse {
	processing := ProcessingQueued
	if !result.Dispatched {
		processing = ProcessingPending
	}
	return UploadResponse{
		Message:    "File uploaded successfully",
		Document:   result.Document,
		Processing: processing,
	}
}
