package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/ai"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/cache"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/rag"
	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/repository"
)

type staticKey string

func (k staticKey) APIKey() string { return string(k) }

// keywordProvider embeds text onto fixed axes by keyword so rankings are predictable.
type keywordProvider struct {
	mu       sync.Mutex
	calls    int
	failWith string
}

var keywordAxes = []string{"earth", "fuse", "battery", "solar"}

func (p *keywordProvider) Embed(_ context.Context, _, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.failWith != "" && strings.Contains(text, p.failWith) {
		return nil, errors.New("provider rejected chunk")
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywordAxes)+1)
	vec[len(keywordAxes)] = 0.01
	for i, kw := range keywordAxes {
		vec[i] = float32(strings.Count(lower, kw))
	}
	return vec, nil
}

type fakeLLM struct {
	reply    string
	chunks   []string
	err      error
	lastMsgs []ai.ChatMessage
	lastKey  string
}

func (f *fakeLLM) Complete(_ context.Context, _ ai.ChatConfig, apiKey string, messages []ai.ChatMessage) (string, error) {
	f.lastMsgs, f.lastKey = messages, apiKey
	return f.reply, f.err
}

func (f *fakeLLM) StreamComplete(_ context.Context, _ ai.ChatConfig, apiKey string, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	f.lastMsgs, f.lastKey = messages, apiKey
	if f.err != nil {
		return "", f.err
	}
	var b strings.Builder
	for _, c := range f.chunks {
		b.WriteString(c)
		if err := onChunk(c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

type fixture struct {
	store    *repository.FileKnowledgeStore
	kb       *rag.KnowledgeBase
	provider *keywordProvider
	library  *LibraryService
}

func newFixture(t *testing.T, key string) *fixture {
	t.Helper()
	creds := staticKey(key)
	provider := &keywordProvider{}
	store := repository.NewFileKnowledgeStore(t.TempDir())
	kb := rag.NewKnowledgeBase()
	library := NewLibraryService(
		store,
		kb,
		rag.NewEmbedder(provider, creds, 0),
		rag.NewRetriever(provider, creds),
		creds,
		LibraryOptions{ChunkSize: 60, ChunkOverlap: 10, TopK: 3},
	)
	clock := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	library.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return &fixture{store: store, kb: kb, provider: provider, library: library}
}

func newTutor(f *fixture, llm *fakeLLM, key string) *TutorService {
	orch := rag.NewOrchestrator(rag.NewRetriever(f.provider, staticKey(key)), f.kb, 2, rag.DefaultMinMessageLength)
	return NewTutorService(cache.NewMemoryHistory(), orch, llm,
		ai.ChatConfig{BaseURL: "http://llm.local", Model: "m"}, staticKey(key), 4)
}
