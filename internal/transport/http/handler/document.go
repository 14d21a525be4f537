package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/app"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/pkg/pdfextract"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/transport/http/response"
)

type DocumentHandler struct {
	library *app.LibraryService
	jobs    *app.IngestJobs
}

type CreateDocumentRequest struct {
	Name    string `json:"name" binding:"max=256"`
	Content string `json:"content" binding:"required"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k" binding:"gte=0,lte=50"`
}

func NewDocumentHandler(library *app.LibraryService, jobs *app.IngestJobs) *DocumentHandler {
	return &DocumentHandler{library: library, jobs: jobs}
}

// CreateDocument ingests pasted text synchronously.
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.library.Ingest(c.Request.Context(), app.IngestInput{
		Name:   req.Name,
		Source: model.SourceText,
		Text:   req.Content,
	}, nil)
	if err != nil {
		writeServiceError(c, err, "ingest failed")
		return
	}

	response.OK(c, result)
}

// UploadPDF accepts a multipart form with "file" and optional "name". Text is
// extracted here; chunking and embedding run as a background job.
func (h *DocumentHandler) UploadPDF(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > pdfextract.MaxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidDocument, "file too large (max 50MB)")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".pdf" {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidDocument, "only PDF files are allowed")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		msg := "failed to extract text from PDF"
		if errors.Is(err, pdfextract.ErrNoText) {
			msg = "PDF contains no extractable text"
		}
		response.Error(c, http.StatusBadRequest, response.CodeInvalidDocument, msg)
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	job, err := h.jobs.Submit(c.Request.Context(), app.IngestInput{
		Name:   name,
		Source: model.SourcePDF,
		Text:   text,
	})
	if err != nil {
		writeServiceError(c, err, "queue ingest failed")
		return
	}

	c.JSON(http.StatusAccepted, response.APIResponse{Code: response.CodeOK, Message: "queued", Data: job})
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.library.ListDocuments(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "list documents failed")
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.library.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.library.DeleteDocument(c.Request.Context(), id); err != nil {
		writeServiceError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func (h *DocumentHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Status(c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "get job failed")
		return
	}
	response.OK(c, job)
}

func (h *DocumentHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	results, err := h.library.Search(c.Request.Context(), req.Query, req.TopK)
	if err != nil {
		writeServiceError(c, err, "search failed")
		return
	}

	type hit struct {
		ID    string  `json:"id"`
		DocID string  `json:"docId"`
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	}
	hits := make([]hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hit{ID: r.Chunk.ID, DocID: r.Chunk.DocID, Text: r.Chunk.Text, Score: r.Score})
	}
	response.OK(c, hits)
}
