package documents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ingest-gateway/internal/shared/auth"
	"ingest-gateway/internal/shared/server/middleware"
	"ingest-gateway/internal/shared/server/respond"
)

// Multipart framing allowance on top of the file itself.
const maxRequestBytes = MaxFileSize + 1<<20

const genericFailureMessage = "The file could not be processed"

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterUploadRoutes attaches the upload route. The group must run the auth middleware.
func (h *Handler) RegisterUploadRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload", h.upload)
}

// RegisterReadRoutes attaches the list and get routes.
func (h *Handler) RegisterReadRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			c.Set("ingestOutcome", "rejected")
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds the 5 MiB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	result, err := h.Svc.Ingest(c.Request.Context(), identity, IngestRequest{
		FileName:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		DeclaredSize: fileHeader.Size,
		Body:         file,
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}

	c.Set("documentId", result.Document.ID)
	if result.Dispatched {
		c.Set("ingestOutcome", "created")
	} else {
		c.Set("ingestOutcome", "created_undispatched")
	}
	respond.Created(c, toUploadResponse(result))
}

func writeIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
	case errors.Is(err, ErrPayloadTooLarge):
		c.Set("ingestOutcome", "rejected")
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds the 5 MiB limit", nil)
	case errors.Is(err, ErrUnsupportedType):
		c.Set("ingestOutcome", "rejected")
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_media_type", "file must be a PDF", nil)
	case errors.Is(err, ErrPayloadInvalid):
		c.Set("ingestOutcome", "rejected")
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrStorageUnavailable):
		c.Set("ingestOutcome", "storage_failed")
		respond.Error(c, http.StatusInternalServerError, "internal_error", genericFailureMessage, nil)
	case errors.Is(err, ErrPersistenceFailed):
		c.Set("ingestOutcome", "persistence_failed")
		respond.Error(c, http.StatusInternalServerError, "internal_error", genericFailureMessage, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", genericFailureMessage, nil)
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}
	respond.OK(c, docs)
}

func (h *Handler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "document id must be a positive integer", nil)
		return
	}

	doc, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}
	c.Set("documentId", doc.ID)
	respond.OK(c, doc)
}
