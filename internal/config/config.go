// config.go assembles the Config record from its sources.
//
// Every value is resolved once, in this order: .env in the working
// directory, then the process environment, then the literal defaults
// below. The compose file contributes the project name and container
// names, and configuration.yml contributes the embedding model. The
// resulting record is never mutated after Load returns.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// File layout relative to the working directory. The templates are the
// sample files shipped with the stack; start copies them into place when
// the live file is missing.
const (
	EnvFileName        = ".env"
	ConfigFileName     = "configuration.yml"
	EnvTemplateName    = "sample_configs/env.dockercompose"
	ConfigTemplateName = "sample_configs/episodic_memory_config.sample"
)

// Environment variable names. They match the keys in the sample .env so
// that the same file drives both compose and these tools.
const (
	EnvPostgresUser     = "POSTGRES_USER"
	EnvPostgresDB       = "POSTGRES_DB"
	EnvPostgresPassword = "POSTGRES_PASSWORD"
	EnvPostgresPort     = "POSTGRES_PORT"
	EnvNeo4jUser        = "NEO4J_USER"
	EnvNeo4jPassword    = "NEO4J_PASSWORD"
	EnvNeo4jPort        = "NEO4J_PORT"
	EnvNeo4jHTTPPort    = "NEO4J_HTTP_PORT"
	EnvServerPort       = "MEMORY_SERVER_PORT"
	EnvOllamaHost       = "OLLAMA_HOST"
	EnvOllamaPort       = "OLLAMA_PORT"
	EnvOllamaModel      = "OLLAMA_MODEL"
	EnvOllamaContainer  = "OLLAMA_CONTAINER"
	EnvProjectName      = "COMPOSE_PROJECT_NAME"
)

// Literal fallbacks used when neither .env nor the environment set a value.
// They mirror the defaults baked into the bundled compose file.
const (
	DefaultPostgresUser     = "memmachine"
	DefaultPostgresDB       = "memmachine"
	DefaultPostgresPassword = "memmachine_password"
	DefaultPostgresPort     = 5432
	DefaultNeo4jUser        = "neo4j"
	DefaultNeo4jPassword    = "neo4j_password"
	DefaultNeo4jPort        = 7687
	DefaultNeo4jHTTPPort    = 7474
	DefaultServerPort       = 8080
	DefaultOllamaHost       = "localhost"
	DefaultOllamaPort       = 11434
	DefaultOllamaModel      = "nomic-embed-text"
	DefaultEmbedderBaseURL  = "http://ollama:11434"
	DefaultProjectName      = "memmachine"
)

// Default container names, used when the compose file sets no container_name.
const (
	DefaultPostgresContainer = "memmachine-postgres"
	DefaultNeo4jContainer    = "memmachine-neo4j"
	DefaultOllamaContainer   = "memmachine-ollama"
	DefaultAppContainer      = "memmachine-app"
)

// Paths holds the absolute locations of the files the controller manages.
type Paths struct {
	WorkDir string
	EnvFile string

	// ComposeFile is the compose file found at load time, or empty when
	// the directory had none.
	ComposeFile string

	ConfigFile     string
	EnvTemplate    string
	ConfigTemplate string
}

// NewPaths resolves the file layout under dir. ComposeFile is left empty;
// Load fills it in after searching for a compose file.
func NewPaths(dir string) Paths {
	return Paths{
		WorkDir:        dir,
		EnvFile:        filepath.Join(dir, EnvFileName),
		ConfigFile:     filepath.Join(dir, ConfigFileName),
		EnvTemplate:    filepath.Join(dir, filepath.FromSlash(EnvTemplateName)),
		ConfigTemplate: filepath.Join(dir, filepath.FromSlash(ConfigTemplateName)),
	}
}

// Postgres holds relational database settings.
type Postgres struct {
	User     string
	Database string
	Password string
	Port     int
}

// Neo4j holds graph database settings.
type Neo4j struct {
	User     string
	Password string
	BoltPort int
	HTTPPort int
}

// Ollama holds model-serving daemon settings.
type Ollama struct {
	// Host and Port address the daemon from the operator's machine.
	Host string
	Port int

	// Model is the embedding model to pull.
	Model string

	// EmbedderBaseURL is the URL the application uses inside the compose
	// network, as written in configuration.yml.
	EmbedderBaseURL string
}

// Containers names the containers the health checks exec into.
type Containers struct {
	Postgres string
	Neo4j    string
	Ollama   string
	App      string
}

// Config is the immutable configuration record.
type Config struct {
	// ProjectName is the compose project, used for COMPOSE_PROJECT_NAME
	// and the label filter that finds the stack's containers.
	ProjectName string

	// ServerPort is the MemMachine API port published on the host.
	ServerPort int

	Postgres    Postgres
	Neo4j       Neo4j
	Ollama      Ollama
	Containers  Containers
	Paths       Paths

	// EnvFileLoaded reports whether .env existed when Load ran.
	EnvFileLoaded bool

	// EmbedderFromFile reports whether the model came from configuration.yml.
	EmbedderFromFile bool
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Options controls Load.
type Options struct {
	// Dir is the working directory holding .env and configuration.yml.
	Dir string

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv LookupFunc

	// ProjectName, when set, overrides every other project name source.
	ProjectName string
}

// Load builds the configuration record. Missing .env or configuration.yml
// files are not errors: the start command creates them from templates.
// Values that are present but malformed (a non-numeric port, unparsable
// YAML) are reported.
func Load(opts Options) (*Config, error) {
	// Resolve the working directory first; every path hangs off it.
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		dir = wd
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	paths := NewPaths(dir)

	// Step 1: Read .env. Its values shadow the process environment.
	fileVars, loaded, err := readEnvFile(paths.EnvFile)
	if err != nil {
		return nil, err
	}

	src := source{file: fileVars, lookup: lookup}

	// Step 2: Read the embedder section of configuration.yml. It supplies
	// the model when OLLAMA_MODEL is unset.
	embedder, fromFile, err := readEmbedder(paths.ConfigFile)
	if err != nil {
		return nil, err
	}

	// Step 3: Read the compose file for the project and container names.
	// A missing compose file is reported later by start, so other
	// subcommands (help, status) still work without one.
	composePath, compose, err := readComposeFile(dir)
	if err != nil {
		return nil, err
	}
	paths.ComposeFile = composePath

	// The compose file's top-level name is what compose itself would use,
	// so it beats the literal default but not COMPOSE_PROJECT_NAME.
	defaultProject := DefaultProjectName
	if compose.Name != "" {
		defaultProject = compose.Name
	}

	cfg := &Config{
		ProjectName: src.str(EnvProjectName, defaultProject),
		Postgres: Postgres{
			User:     src.str(EnvPostgresUser, DefaultPostgresUser),
			Database: src.str(EnvPostgresDB, DefaultPostgresDB),
			Password: src.str(EnvPostgresPassword, DefaultPostgresPassword),
		},
		Neo4j: Neo4j{
			User:     src.str(EnvNeo4jUser, DefaultNeo4jUser),
			Password: src.str(EnvNeo4jPassword, DefaultNeo4jPassword),
		},
		Ollama: Ollama{
			Host:            src.str(EnvOllamaHost, DefaultOllamaHost),
			Model:           src.str(EnvOllamaModel, embedder.Model),
			EmbedderBaseURL: embedder.BaseURL,
		},
		Containers: Containers{
			Postgres: compose.containerName(ServicePostgres, DefaultPostgresContainer),
			Neo4j:    compose.containerName(ServiceNeo4j, DefaultNeo4jContainer),
			Ollama:   src.str(EnvOllamaContainer, compose.containerName(ServiceOllama, DefaultOllamaContainer)),
			App:      compose.containerName(ServiceApp, DefaultAppContainer),
		},
		Paths:            paths,
		EnvFileLoaded:    loaded,
		EmbedderFromFile: fromFile,
	}

	// An explicit --project flag beats every file and variable.
	if opts.ProjectName != "" {
		cfg.ProjectName = opts.ProjectName
	}

	// Step 4: Parse the port variables. A malformed port is an error
	// rather than a silent fallback, since compose would reject it too.

	ports := []struct {
		key  string
		def  int
		dest *int
	}{
		{EnvPostgresPort, DefaultPostgresPort, &cfg.Postgres.Port},
		{EnvNeo4jPort, DefaultNeo4jPort, &cfg.Neo4j.BoltPort},
		{EnvNeo4jHTTPPort, DefaultNeo4jHTTPPort, &cfg.Neo4j.HTTPPort},
		{EnvServerPort, DefaultServerPort, &cfg.ServerPort},
		{EnvOllamaPort, DefaultOllamaPort, &cfg.Ollama.Port},
	}
	for _, p := range ports {
		v, err := src.port(p.key, p.def)
		if err != nil {
			return nil, err
		}
		*p.dest = v
	}

	// A port inside OLLAMA_HOST is the one the daemon is reached on, so it
	// also drives the host-port preflight.
	if p := hostPort(cfg.Ollama.Host); p != 0 {
		cfg.Ollama.Port = p
	}

	return cfg, nil
}

// readEnvFile parses .env. A missing file yields an empty map.
func readEnvFile(path string) (map[string]string, bool, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, false, nil
		}
		return nil, false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return vars, true, nil
}

// source resolves a key the way `source .env` would in a shell: the file
// shadows the inherited environment, and empty values fall back to the
// default.
type source struct {
	file   map[string]string
	lookup LookupFunc
}

// str returns the trimmed value of key, or def when it is unset or blank.
func (s source) str(key, def string) string {
	if v, ok := s.file[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := s.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// port returns key as a TCP port number, or def when it is unset.
func (s source) port(key string, def int) (int, error) {
	raw := s.str(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid %s %q: must be a port number between 1 and 65535", key, raw)
	}
	return n, nil
}

// OllamaURL is the daemon's base URL as reachable from the host.
//
// OLLAMA_HOST follows the ollama CLI's own convention: it may be a bare
// host ("localhost"), a host:port pair ("0.0.0.0:11434") or a full URL
// ("http://localhost:11434"). The scheme defaults to http, and the
// configured port is appended only when the host carries none.
func (c *Config) OllamaURL() string {
	u, ok := parseOllamaHost(c.Ollama.Host)
	if !ok {
		// Unparsable values are passed through so the readiness check
		// fails with a connection error that names them.
		return fmt.Sprintf("http://%s:%d", c.Ollama.Host, c.Ollama.Port)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(c.Ollama.Port))
	}
	return u.String()
}

// parseOllamaHost turns an OLLAMA_HOST value into a URL with a scheme and
// no trailing slash. The bool is false when the value cannot be parsed.
func parseOllamaHost(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultOllamaHost
	}
	// Without a scheme, url.Parse reads "localhost:11434" as scheme
	// "localhost", so one is added first.
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, false
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, true
}

// hostPort returns the port embedded in an OLLAMA_HOST value, or 0.
func hostPort(raw string) int {
	u, ok := parseOllamaHost(raw)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(u.Port())
	if err != nil {
		return 0
	}
	return n
}

// ServerURL is the MemMachine API base URL.
func (c *Config) ServerURL() string {
	return fmt.Sprintf("http://localhost:%d", c.ServerPort)
}

// Neo4jBrowserURL is the Neo4j web console URL.
func (c *Config) Neo4jBrowserURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Neo4j.HTTPPort)
}

// HostPorts lists the host ports the stack publishes, keyed by service.
func (c *Config) HostPorts() map[string]int {
	return map[string]int{
		"postgres":      c.Postgres.Port,
		"neo4j-bolt":    c.Neo4j.BoltPort,
		"neo4j-http":    c.Neo4j.HTTPPort,
		"ollama":        c.Ollama.Port,
		"memory-server": c.ServerPort,
	}
}
