package rag

import (
	"context"
	"errors"
	"sync"
)

type staticKey string

func (k staticKey) APIKey() string { return string(k) }

// fakeProvider answers from a text->vector table and counts calls.
type fakeProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]error
	calls   []string
	keys    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{vectors: map[string][]float32{}, fail: map[string]error{}}
}

func (p *fakeProvider) Embed(_ context.Context, apiKey, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, text)
	p.keys = append(p.keys, apiKey)
	if err, ok := p.fail[text]; ok {
		return nil, err
	}
	if v, ok := p.vectors[text]; ok {
		return v, nil
	}
	return []float32{float32(len(text)), 1}, nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

var errProviderDown = errors.New("provider down")
