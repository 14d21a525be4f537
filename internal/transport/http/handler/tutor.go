package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/app"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/transport/http/response"
)

type TutorHandler struct {
	tutor *app.TutorService
}

type TutorMessageRequest struct {
	SessionID string `json:"session_id" binding:"max=128"`
	Content   string `json:"content" binding:"required"`
}

func NewTutorHandler(tutor *app.TutorService) *TutorHandler {
	return &TutorHandler{tutor: tutor}
}

func (h *TutorHandler) SendMessage(c *gin.Context) {
	var req TutorMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.tutor.SendMessage(c.Request.Context(), app.TutorInput{
		SessionID: req.SessionID,
		Content:   req.Content,
	})
	if err != nil {
		writeServiceError(c, err, "send message failed")
		return
	}

	response.OK(c, reply)
}

// StreamMessage answers over SSE: one data event per delta, then "done" with the
// full text or "error".
func (h *TutorHandler) StreamMessage(c *gin.Context) {
	var req TutorMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	full, err := h.tutor.StreamMessage(c.Request.Context(), app.TutorInput{
		SessionID: req.SessionID,
		Content:   req.Content,
	}, func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		if _, writeErr := c.Writer.Write([]byte(fmt.Sprintf("event: error\ndata: %s\n\n", sanitizeSSE(err.Error())))); writeErr == nil {
			flusher.Flush()
		}
		return
	}

	if _, writeErr := c.Writer.Write([]byte("event: done\ndata: " + sanitizeSSE(full) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *TutorHandler) GetHistory(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	history, err := h.tutor.GetHistory(c.Request.Context(), c.Query("session_id"), limit)
	if err != nil {
		writeServiceError(c, err, "get history failed")
		return
	}
	if history == nil {
		history = []model.TutorMessage{}
	}
	response.OK(c, history)
}

func (h *TutorHandler) ClearHistory(c *gin.Context) {
	if err := h.tutor.ClearHistory(c.Request.Context(), c.Query("session_id")); err != nil {
		writeServiceError(c, err, "clear history failed")
		return
	}
	response.OK(c, gin.H{"cleared": true})
}
