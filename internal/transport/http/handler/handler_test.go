package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/ai"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/app"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/cache"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/credential"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/model"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/repository"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/transport/http/response"
)

type keywordProvider struct{}

// Embed maps text onto (has "earth", has "battery", 1) so rankings are predictable.
func (keywordProvider) Embed(_ context.Context, _, text string) ([]float32, error) {
	vec := []float32{0, 0, 0.01}
	if strings.Contains(strings.ToLower(text), "earth") {
		vec[0] = 1
	}
	if strings.Contains(strings.ToLower(text), "battery") {
		vec[1] = 1
	}
	return vec, nil
}

type scriptedLLM struct{}

func (scriptedLLM) Complete(context.Context, ai.ChatConfig, string, []ai.ChatMessage) (string, error) {
	return "Switch off at the isolator first.", nil
}

func (scriptedLLM) StreamComplete(_ context.Context, _ ai.ChatConfig, _ string, _ []ai.ChatMessage, onChunk func(string) error) (string, error) {
	for _, c := range []string{"Line one\n", "line two"} {
		if err := onChunk(c); err != nil {
			return "", err
		}
	}
	return "Line one\nline two", nil
}

type inlineQueue struct{ jobs *app.IngestJobs }

func (q inlineQueue) Publish(ctx context.Context, job model.IngestJob) error {
	_ = q.jobs.Process(ctx, job)
	return nil
}

type testServer struct {
	router   *gin.Engine
	resolver *credential.Resolver
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv(credential.EnvAPIKey, "")

	dir := t.TempDir()
	resolver, err := credential.NewResolver(dir)
	require.NoError(t, err)
	if apiKey != "" {
		require.NoError(t, resolver.Save(apiKey))
	}

	provider := keywordProvider{}
	kb := rag.NewKnowledgeBase()
	retriever := rag.NewRetriever(provider, resolver)
	library := app.NewLibraryService(
		repository.NewFileKnowledgeStore(dir),
		kb,
		rag.NewEmbedder(provider, resolver, 0),
		retriever,
		resolver,
		app.LibraryOptions{ChunkSize: 60, ChunkOverlap: 10, TopK: 5},
	)
	jobs := app.NewIngestJobs(library, app.NewJobTracker(time.Hour))
	jobs.SetQueue(inlineQueue{jobs: jobs})
	tutor := app.NewTutorService(
		cache.NewMemoryHistory(),
		rag.NewOrchestrator(retriever, kb, 3, rag.DefaultMinMessageLength),
		scriptedLLM{},
		ai.ChatConfig{BaseURL: "http://llm.local", Model: "m"},
		resolver,
		10,
	)

	documents := NewDocumentHandler(library, jobs)
	tutors := NewTutorHandler(tutor)
	settings := NewSettingsHandler(resolver)
	health := NewHealthHandler("esafe", "test", time.Now(), kb.Len)

	r := gin.New()
	r.GET("/healthz", health.Check)
	v1 := r.Group("/api/v1")
	v1.POST("/documents", documents.CreateDocument)
	v1.POST("/documents/pdf", documents.UploadPDF)
	v1.GET("/documents", documents.ListDocuments)
	v1.DELETE("/documents/:id", documents.DeleteDocument)
	v1.GET("/jobs/:id", documents.GetJob)
	v1.POST("/search", documents.Search)
	v1.POST("/tutor/messages", tutors.SendMessage)
	v1.POST("/tutor/stream", tutors.StreamMessage)
	v1.GET("/tutor/history", tutors.GetHistory)
	v1.DELETE("/tutor/history", tutors.ClearHistory)
	v1.GET("/settings/api-key", settings.GetAPIKey)
	v1.PUT("/settings/api-key", settings.SaveAPIKey)
	v1.DELETE("/settings/api-key", settings.DeleteAPIKey)

	return &testServer{router: r, resolver: resolver}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env response.APIResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeData(t *testing.T, env response.APIResponse, out any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

const notes = "Always earth the metal chassis of the appliance. " +
	"A fuse protects the cable from overload. " +
	"Store each battery away from heat and sunlight."

func TestDocuments_CreateListSearchDelete(t *testing.T) {
	s := newTestServer(t, "k")

	w, env := s.do(t, http.MethodPost, "/api/v1/documents", gin.H{"name": "notes", "content": notes})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result app.IngestResult
	decodeData(t, env, &result)
	assert.Equal(t, 3, result.ChunkCount)

	w, env = s.do(t, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []model.Document
	decodeData(t, env, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes", docs[0].Name)

	w, env = s.do(t, http.MethodPost, "/api/v1/search", gin.H{"query": "battery storage", "top_k": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var hits []struct {
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	}
	decodeData(t, env, &hits)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Text, "battery")

	w, env = s.do(t, http.MethodGet, "/api/v1/documents/"+result.Document.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc model.Document
	decodeData(t, env, &doc)
	assert.Equal(t, result.Document.ID, doc.ID)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/documents/"+result.Document.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(t, http.MethodGet, "/api/v1/documents/"+result.Document.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeDocumentNotFound, env.Code)
	w, env = s.do(t, http.MethodDelete, "/api/v1/documents/"+result.Document.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeDocumentNotFound, env.Code)
}

func TestDocuments_MissingCredential(t *testing.T) {
	s := newTestServer(t, "")

	w, env := s.do(t, http.MethodPost, "/api/v1/documents", gin.H{"name": "notes", "content": notes})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeMissingCredential, env.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/tutor/messages", gin.H{"content": "How do I earth a chassis?"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeMissingCredential, env.Code)
}

func TestDocuments_InvalidPayload(t *testing.T) {
	s := newTestServer(t, "k")
	w, env := s.do(t, http.MethodPost, "/api/v1/documents", gin.H{"name": "no content"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeBadRequest, env.Code)
}

func TestUploadPDF_RejectsNonPDF(t *testing.T) {
	s := newTestServer(t, "k")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte(notes))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/pdf", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "only PDF files are allowed")
}

func TestUploadPDF_MissingFile(t *testing.T) {
	s := newTestServer(t, "k")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/pdf", strings.NewReader(""))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobs_NotFound(t *testing.T) {
	s := newTestServer(t, "k")
	w, env := s.do(t, http.MethodGet, "/api/v1/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.CodeJobNotFound, env.Code)
}

func TestTutor_MessageAndHistory(t *testing.T) {
	s := newTestServer(t, "k")

	w, env := s.do(t, http.MethodPost, "/api/v1/tutor/messages", gin.H{"session_id": "lesson-1", "content": "How do I isolate a circuit?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reply app.TutorReply
	decodeData(t, env, &reply)
	require.Len(t, reply.Messages, 2)
	assert.Equal(t, "Switch off at the isolator first.", reply.Messages[1].Content)

	w, env = s.do(t, http.MethodGet, "/api/v1/tutor/history?session_id=lesson-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []model.TutorMessage
	decodeData(t, env, &history)
	assert.Len(t, history, 2)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/tutor/history?session_id=lesson-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, env = s.do(t, http.MethodGet, "/api/v1/tutor/history?session_id=lesson-1", nil)
	decodeData(t, env, &history)
	assert.Empty(t, history)
}

func TestTutor_Stream(t *testing.T) {
	s := newTestServer(t, "k")
	w, _ := s.do(t, http.MethodPost, "/api/v1/tutor/stream", gin.H{"content": "What about batteries?"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "data: Line one\\n\n\n")
	assert.Contains(t, body, "event: done\ndata: Line one\\nline two\n\n")
}

func TestSettings_APIKeyLifecycle(t *testing.T) {
	s := newTestServer(t, "")

	_, env := s.do(t, http.MethodGet, "/api/v1/settings/api-key", nil)
	var st struct {
		Configured bool   `json:"configured"`
		Source     string `json:"source"`
		Masked     string `json:"masked"`
	}
	decodeData(t, env, &st)
	assert.False(t, st.Configured)
	assert.Equal(t, "none", st.Source)

	w, env := s.do(t, http.MethodPut, "/api/v1/settings/api-key", gin.H{"api_key": "AIza-secret-1234"})
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, env, &st)
	assert.True(t, st.Configured)
	assert.Equal(t, "stored", st.Source)
	assert.Equal(t, "************1234", st.Masked)
	assert.Equal(t, "AIza-secret-1234", s.resolver.APIKey())

	w, env = s.do(t, http.MethodDelete, "/api/v1/settings/api-key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, env, &st)
	assert.False(t, st.Configured)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "k")
	w, _ := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "esafe", body["app"])
	assert.EqualValues(t, 0, body["knowledge_base_chunks"])
}

func TestHealth_FailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler("esafe", "test", time.Now(), nil, DependencyCheck{
		Name:  "redis",
		Check: func(context.Context) error { return assert.AnError },
	})
	r := gin.New()
	r.GET("/healthz", h.Check)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
