package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Embedder is the Ollama embedder definition found in configuration.yml.
type Embedder struct {
	Model   string
	BaseURL string
}

// embedderEntry mirrors one entry of the embedder section. Only the fields
// needed to locate an Ollama embedder are decoded; everything else in
// configuration.yml is ignored.
type embedderEntry struct {
	Name     string         `yaml:"name"`
	Provider string         `yaml:"provider"`
	Config   embedderConfig `yaml:"config"`
}

type embedderConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// configDocument is the subset of configuration.yml we read. Both the
// singular and plural section names appear across releases.
type configDocument struct {
	Embedder  map[string]embedderEntry `yaml:"embedder"`
	Embedders map[string]embedderEntry `yaml:"embedders"`
}

// defaultEmbedder matches the application's own Ollama embedder defaults.
func defaultEmbedder() Embedder {
	return Embedder{Model: DefaultOllamaModel, BaseURL: DefaultEmbedderBaseURL}
}

// readEmbedder returns the first Ollama embedder (in key order) declared in
// configuration.yml. The bool result reports whether one was found; a
// missing file or a file without an Ollama embedder yields the defaults.
func readEmbedder(path string) (Embedder, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultEmbedder(), false, nil
		}
		return Embedder{}, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseEmbedder(data)
}

// ParseEmbedder extracts the Ollama embedder from configuration.yml bytes.
func ParseEmbedder(data []byte) (Embedder, bool, error) {
	var doc configDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Embedder{}, false, fmt.Errorf("failed to parse configuration YAML: %w", err)
	}

	entries := doc.Embedder
	if len(entries) == 0 {
		entries = doc.Embedders
	}

	// Sort keys for a deterministic pick when several embedders are declared.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := entries[k]
		if !strings.EqualFold(e.Name, "ollama") && !strings.EqualFold(e.Provider, "ollama") {
			continue
		}
		emb := defaultEmbedder()
		if e.Config.Model != "" {
			emb.Model = e.Config.Model
		}
		if e.Config.BaseURL != "" {
			emb.BaseURL = e.Config.BaseURL
		}
		return emb, true, nil
	}

	return defaultEmbedder(), false, nil
}
