package api

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/stacks/pkg/embeddings"
	"github.com/papercomputeco/stacks/pkg/extract"
	"github.com/papercomputeco/stacks/pkg/ingest"
	"github.com/papercomputeco/stacks/pkg/retrieval"
	"github.com/papercomputeco/stacks/pkg/store"
)

// uploadFileField is the multipart form field carrying the uploaded file.
const uploadFileField = "pdfFile"

// ErrorResponse is the JSON error envelope for all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadResponse is the success envelope for POST /api/pdfs/upload.
type UploadResponse struct {
	Message string         `json:"message"`
	Data    *ingest.Result `json:"data"`
}

// QueryRequest is the body for POST /api/pdfs/query/:documentId.
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryData is the payload of a successful query response.
type QueryData struct {
	Answer         string             `json:"answer"`
	RelevantChunks []retrieval.Result `json:"relevantChunks"`
}

// QueryResponse is the success envelope for POST /api/pdfs/query/:documentId.
type QueryResponse struct {
	Message string    `json:"message"`
	Data    QueryData `json:"data"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealthz reports whether the store is reachable.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	if _, err := s.config.Store.DocumentExists(c.Context(), 0); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleUpload accepts a multipart file upload, extracts its text, and runs
// the full ingestion pipeline. Nothing is persisted on failure.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile(uploadFileField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "no file uploaded: expected multipart field \"pdfFile\"",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "failed to open uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "failed to read uploaded file",
		})
	}

	text, err := s.config.Extractor.Extract(c.Context(), data)
	if err != nil {
		s.logger.Error("text extraction failed",
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		if errors.Is(err, extract.ErrExtraction) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "could not extract text from the uploaded file",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "error processing uploaded file",
		})
	}

	result, err := s.config.Coordinator.Ingest(c.Context(), text, fileHeader.Filename)
	if err != nil {
		return s.uploadError(c, fileHeader.Filename, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UploadResponse{
		Message: "PDF uploaded and processed successfully",
		Data:    result,
	})
}

// uploadError maps ingestion failures to HTTP statuses.
func (s *Server) uploadError(c *fiber.Ctx, filename string, err error) error {
	switch {
	case errors.Is(err, ingest.ErrEmptyDocument):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "document has no extractable text",
		})

	case errors.Is(err, embeddings.ErrUnavailable):
		s.logger.Error("embedding backend unavailable during upload",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "embedding service unavailable",
		})

	default:
		s.logger.Error("ingestion failed",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to process uploaded file",
		})
	}
}

// handleQuery answers a question against a previously ingested document.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	documentID, err := strconv.ParseInt(c.Params("documentId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "documentId must be an integer",
		})
	}

	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	if strings.TrimSpace(req.Question) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "question is required",
		})
	}

	results, err := s.config.Ranker.Query(c.Context(), documentID, req.Question)
	if err != nil {
		return s.queryError(c, documentID, err)
	}

	if len(results) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "no relevant information found in the document for your query",
		})
	}

	reply, err := s.config.Synthesizer.Synthesize(c.Context(), req.Question, results)
	if err != nil {
		s.logger.Error("answer synthesis failed",
			zap.Int64("documentId", documentID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to synthesize answer",
		})
	}

	return c.JSON(QueryResponse{
		Message: "Query processed successfully",
		Data: QueryData{
			Answer:         reply,
			RelevantChunks: results,
		},
	})
}

// queryError maps retrieval failures to HTTP statuses.
func (s *Server) queryError(c *fiber.Ctx, documentID int64, err error) error {
	switch {
	case errors.Is(err, retrieval.ErrBlankQuestion):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "question is required",
		})

	case errors.Is(err, store.ErrDocumentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "document not found",
		})

	case errors.Is(err, embeddings.ErrUnavailable):
		s.logger.Error("embedding backend unavailable during query",
			zap.Int64("documentId", documentID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "embedding service unavailable",
		})

	default:
		s.logger.Error("query failed",
			zap.Int64("documentId", documentID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to process query",
		})
	}
}
