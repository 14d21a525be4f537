package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck is one optional backend the health endpoint reports on.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	appName   string
	env       string
	startedAt time.Time
	checks    []DependencyCheck
	kbSize    func() int
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(appName, env string, startedAt time.Time, kbSize func() int, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{
		appName:   appName,
		env:       env,
		startedAt: startedAt,
		checks:    checks,
		kbSize:    kbSize,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	allOK := true
	deps := make(gin.H, len(h.checks))
	for _, dep := range h.checks {
		status := dependencyStatus{OK: true}
		if err := dep.Check(ctx); err != nil {
			status = dependencyStatus{OK: false, Message: err.Error()}
			allOK = false
		}
		deps[dep.Name] = status
	}

	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	chunks := 0
	if h.kbSize != nil {
		chunks = h.kbSize()
	}
	c.JSON(statusCode, gin.H{
		"app":                   h.appName,
		"env":                   h.env,
		"uptime_sec":            int(time.Since(h.startedAt).Seconds()),
		"knowledge_base_chunks": chunks,
		"dependencies":          deps,
	})
}
