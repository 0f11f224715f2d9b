package documents

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadInvalid  = errors.New("payload invalid")
	ErrPayloadTooLarge = fmt.Errorf("%w: file exceeds %d bytes", ErrPayloadInvalid, MaxFileSize)
	ErrUnsupportedType = fmt.Errorf("%w: file must be %s", ErrPayloadInvalid, PDFContentType)

	ErrStorageUnavailable = errors.New("object storage unavailable")
	ErrPersistenceFailed  = errors.New("document metadata could not be saved")
	ErrDispatchFailed     = errors.New("processing job could not be enqueued")

	ErrNotFound = errors.New("document not found")
)
