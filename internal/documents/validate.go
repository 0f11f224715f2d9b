package documents

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"ingest-gateway/internal/shared/util"
)

const (
	// MaxFileSize is the largest accepted upload, 5 MiB.
	MaxFileSize int64 = 5 << 20
	// PDFContentType is the only accepted content type.
	PDFContentType = "application/pdf"
)

// checkRequest validates the declared attributes of an upload and returns the
// sanitized file name. It performs no I/O.
func checkRequest(req IngestRequest) (string, error) {
	if req.Body == nil {
		return "", fmt.Errorf("%w: file is required", ErrPayloadInvalid)
	}
	if req.DeclaredSize > MaxFileSize {
		return "", ErrPayloadTooLarge
	}
	if req.DeclaredSize <= 0 {
		return "", fmt.Errorf("%w: file is empty", ErrPayloadInvalid)
	}
	if !isPDFContentType(req.ContentType) {
		return "", ErrUnsupportedType
	}
	name, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPayloadInvalid, err)
	}
	return name, nil
}

// readPayload buffers the body, enforcing the size limit and the declared
// size, and checks that the bytes are a PDF.
func readPayload(req IngestRequest) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(req.Body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrPayloadInvalid, err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrPayloadTooLarge
	}
	if int64(len(data)) != req.DeclaredSize {
		return nil, fmt.Errorf("%w: received %d bytes, declared %d", ErrPayloadInvalid, len(data), req.DeclaredSize)
	}
	if !mimetype.Detect(data).Is(PDFContentType) {
		return nil, ErrUnsupportedType
	}
	return data, nil
}

func isPDFContentType(raw string) bool {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		mediaType = strings.TrimSpace(raw)
	}
	return strings.EqualFold(mediaType, PDFContentType)
}

// countPages returns the page count of a PDF, or 0 when it cannot be parsed.
func countPages(data []byte) (pages int) {
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
