package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/danghoangsqtt-sys/esafe-electro-v3-sub000/internal/pkg/atomicfile"
)

const (
	EnvAPIKey    = "LLM_API_KEY"
	settingsFile = "settings.json"
)

type Source string

const (
	SourceEnv    Source = "env"
	SourceStored Source = "stored"
	SourceNone   Source = "none"
)

type settings struct {
	APIKey string `json:"apiKey"`
}

// Resolver yields the provider key: the LLM_API_KEY environment variable wins over
// the key the user stored through the settings screen. The environment is read on
// every call so a restart is not needed after exporting a new key.
type Resolver struct {
	path string

	mu     sync.RWMutex
	stored string
}

func NewResolver(dataDir string) (*Resolver, error) {
	r := &Resolver{path: filepath.Join(dataDir, settingsFile)}

	var s settings
	if _, err := atomicfile.ReadJSON(r.path, &s); err != nil {
		return nil, fmt.Errorf("load credential settings failed: %w", err)
	}
	r.stored = strings.TrimSpace(s.APIKey)
	return r, nil
}

func (r *Resolver) APIKey() string {
	key, _ := r.resolve()
	return key
}

func (r *Resolver) Source() Source {
	_, src := r.resolve()
	return src
}

func (r *Resolver) resolve() (string, Source) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		return v, SourceEnv
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stored != "" {
		return r.stored, SourceStored
	}
	return "", SourceNone
}

func (r *Resolver) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("api key is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := atomicfile.WriteJSON(r.path, settings{APIKey: key}); err != nil {
		return fmt.Errorf("save api key failed: %w", err)
	}
	r.stored = key
	return nil
}

func (r *Resolver) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := atomicfile.WriteJSON(r.path, settings{}); err != nil {
		return fmt.Errorf("clear api key failed: %w", err)
	}
	r.stored = ""
	return nil
}

// Mask keeps the last four characters for display.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	runes := []rune(key)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
