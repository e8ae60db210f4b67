package handlers

import (
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arca-compliance/backend/internal/domain"
	"github.com/arca-compliance/backend/internal/ingestion"
	"github.com/arca-compliance/backend/pkg/logger"
)

type DocumentHandler struct {
	pipeline *ingestion.Pipeline
}

func NewDocumentHandler(pipeline *ingestion.Pipeline) *DocumentHandler {
	return &DocumentHandler{pipeline: pipeline}
}

// UploadDocument accepts either a multipart upload (field "file") or a JSON
// body with inline content.
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	content, filename, declaredSize, err := readUpload(c)
	if err != nil {
		return respondError(c, err)
	}

	documentID, err := h.pipeline.Submit(content, filename, declaredSize)
	if err != nil {
		logger.Warn("Document submission rejected",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return respondError(c, err)
	}

	doc, err := h.pipeline.Status(documentID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"document_id": documentID,
		"status":      doc.Status,
	})
}

func readUpload(c *fiber.Ctx) ([]byte, string, int64, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, "", 0, fmt.Errorf("%w: cannot open upload: %v", domain.ErrValidation, err)
		}
		defer f.Close()

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, "", 0, fmt.Errorf("%w: cannot read upload: %v", domain.ErrValidation, err)
		}
		return content, file.Filename, file.Size, nil
	}

	var req struct {
		Filename     string `json:"filename"`
		Content      string `json:"content"`
		DeclaredSize int64  `json:"declared_size"`
	}
	if err := c.BodyParser(&req); err != nil {
		return nil, "", 0, fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	if req.Filename == "" {
		return nil, "", 0, fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	declared := req.DeclaredSize
	if declared == 0 {
		declared = int64(len(req.Content))
	}
	return []byte(req.Content), req.Filename, declared, nil
}

func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	doc, err := h.pipeline.Status(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(documentJSON(doc))
}

func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs := h.pipeline.List()
	out := make([]fiber.Map, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentJSON(doc))
	}
	return c.JSON(fiber.Map{"documents": out})
}

func (h *DocumentHandler) CancelDocument(c *fiber.Ctx) error {
	if err := h.pipeline.Cancel(c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"canceled": true})
}

func documentJSON(doc domain.Document) fiber.Map {
	m := fiber.Map{
		"document_id":  doc.ID,
		"filename":     doc.Filename,
		"byte_size":    doc.ByteSize,
		"content_hash": doc.ContentHash,
		"status":       doc.Status,
		"attempts":     doc.Attempts,
		"submitted_at": doc.SubmittedAt.Format(time.RFC3339),
	}
	if doc.ErrorReason != "" {
		m["error_reason"] = doc.ErrorReason
	}
	if doc.CompletedAt != nil {
		m["completed_at"] = doc.CompletedAt.Format(time.RFC3339)
	}
	return m
}
