package predictor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shadiayoub/okx-bot/internal/model"
)

// Registry maps model symbols to their active artifact. Activation is
// how a finished retraining job lands: the new version is swapped in
// atomically and the old artifact is released.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Predictor
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Predictor)}
}

// Active returns the predictor registered for the model symbol, or
// model.ErrModelUnavailable when none is.
func (r *Registry) Active(symbol string) (Predictor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.models[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, model.ErrModelUnavailable)
	}
	return p, nil
}

// Activate swaps in a new predictor for the symbol, closing the one it
// replaces.
func (r *Registry) Activate(symbol string, p Predictor) {
	r.mu.Lock()
	old := r.models[symbol]
	r.models[symbol] = p
	r.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Printf("[WARN] close replaced model for %s: %v", symbol, err)
		}
	}
	log.Printf("[INFO] model activated for %s (version %s)", symbol, p.Version())
}

// ActivateFile loads an ONNX artifact and activates it.
func (r *Registry) ActivateFile(symbol, path string) error {
	m, err := LoadONNXModel(path, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("load model for %s: %w", symbol, err)
	}
	r.Activate(symbol, m)
	return nil
}

// Symbols lists the model symbols with an active artifact.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.models))
	for s := range r.models {
		out = append(out, s)
	}
	return out
}

// Close releases every active artifact.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s, p := range r.models {
		if err := p.Close(); err != nil {
			log.Printf("[WARN] close model for %s: %v", s, err)
		}
		delete(r.models, s)
	}
	return nil
}

// LoadDir scans a directory for "<SYMBOL>_<suffix>.onnx" artifacts and
// activates one per symbol. Symbols without an artifact simply stay
// unregistered; prediction degrades to pure technical signal for them.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read models dir: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".onnx") {
			continue
		}
		symbol := strings.SplitN(strings.TrimSuffix(name, ".onnx"), "_", 2)[0]
		if symbol == "" {
			continue
		}
		if err := r.ActivateFile(symbol, filepath.Join(dir, name)); err != nil {
			log.Printf("[WARN] skipping model %s: %v", name, err)
			continue
		}
		loaded++
	}
	log.Printf("[INFO] %d model(s) loaded from %s", loaded, dir)
	return nil
}
