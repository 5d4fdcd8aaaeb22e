package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/memmachine/memmachine-stack/internal/model"
)

// ComposeFileNames are the compose file names searched, in the order the
// compose tool itself prefers them.
var ComposeFileNames = []string{
	"compose.yaml",
	"compose.yml",
	"docker-compose.yaml",
	"docker-compose.yml",
}

// Compose service keys whose container_name overrides the defaults.
const (
	ServicePostgres = "postgres"
	ServiceNeo4j    = "neo4j"
	ServiceOllama   = "ollama"
	ServiceApp      = "memmachine"
)

// ComposeFile is the subset of the compose file the controller needs.
type ComposeFile struct {
	// Name is the top-level project name, empty when not declared.
	Name string

	// ContainerNames maps service keys to their explicit container_name.
	// Services without one are absent.
	ContainerNames map[string]string

	// Services lists every declared service key.
	Services []string
}

type composeDocument struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	ContainerName string `yaml:"container_name"`
}

// FindComposeFile returns the first compose file present in dir.
func FindComposeFile(dir string) (string, error) {
	for _, name := range ComposeFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", model.PreconditionError(
		fmt.Sprintf("no compose file found in %s (searched %v)", dir, ComposeFileNames), nil)
}

// ParseComposeFile decodes compose YAML bytes.
func ParseComposeFile(data []byte) (ComposeFile, error) {
	var doc composeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ComposeFile{}, fmt.Errorf("failed to parse compose file: %w", err)
	}

	cf := ComposeFile{
		Name:           doc.Name,
		ContainerNames: make(map[string]string),
	}
	for svc, def := range doc.Services {
		cf.Services = append(cf.Services, svc)
		if def.ContainerName != "" {
			cf.ContainerNames[svc] = def.ContainerName
		}
	}
	sort.Strings(cf.Services)
	return cf, nil
}

// readComposeFile reads the compose file in dir. A missing file is not an
// error here; Start reports it through FindComposeFile.
func readComposeFile(dir string) (string, ComposeFile, error) {
	path, err := FindComposeFile(dir)
	if err != nil {
		return "", ComposeFile{ContainerNames: map[string]string{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ComposeFile{ContainerNames: map[string]string{}}, nil
		}
		return "", ComposeFile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cf, err := ParseComposeFile(data)
	if err != nil {
		return "", ComposeFile{}, fmt.Errorf("%s: %w", path, err)
	}
	return path, cf, nil
}

// containerName picks the compose file's container_name for svc, falling
// back to def.
func (cf ComposeFile) containerName(svc, def string) string {
	if name, ok := cf.ContainerNames[svc]; ok {
		return name
	}
	return def
}
