package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/credential"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/transport/http/response"
)

type SettingsHandler struct {
	resolver *credential.Resolver
}

type SaveAPIKeyRequest struct {
	APIKey string `json:"api_key" binding:"required,max=512"`
}

type apiKeyStatus struct {
	Configured bool              `json:"configured"`
	Source     credential.Source `json:"source"`
	Masked     string            `json:"masked,omitempty"`
}

func NewSettingsHandler(resolver *credential.Resolver) *SettingsHandler {
	return &SettingsHandler{resolver: resolver}
}

func (h *SettingsHandler) GetAPIKey(c *gin.Context) {
	response.OK(c, h.status())
}

func (h *SettingsHandler) SaveAPIKey(c *gin.Context) {
	var req SaveAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.resolver.Save(req.APIKey); err != nil {
		writeServiceError(c, err, "save api key failed")
		return
	}
	response.OK(c, h.status())
}

func (h *SettingsHandler) DeleteAPIKey(c *gin.Context) {
	if err := h.resolver.Clear(); err != nil {
		writeServiceError(c, err, "clear api key failed")
		return
	}
	response.OK(c, h.status())
}

func (h *SettingsHandler) status() apiKeyStatus {
	key := h.resolver.APIKey()
	return apiKeyStatus{
		Configured: key != "",
		Source:     h.resolver.Source(),
		Masked:     credential.Mask(key),
	}
}
