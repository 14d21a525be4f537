package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/app"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/transport/http/response"
)

// writeServiceError maps service errors onto the response envelope; anything
// unknown is logged and reported as fallback.
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, rag.ErrMissingCredential):
		response.Error(c, http.StatusBadRequest, response.CodeMissingCredential, "API key is not configured")
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrLLMConfig):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrJobNotFound):
		response.Error(c, http.StatusNotFound, response.CodeJobNotFound, err.Error())
	case errors.Is(err, app.ErrNothingEmbedded):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeProcessingFailed, err.Error())
	case errors.Is(err, app.ErrIngestEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, app.ErrIngestEnqueue.Error())
	default:
		log.Printf("http: %s %s: %s: %v", c.Request.Method, c.FullPath(), fallback, err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
