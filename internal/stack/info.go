package stack

import (
	"fmt"

	"github.com/memmachine/memmachine-stack/internal/config"
	"github.com/memmachine/memmachine-stack/internal/model"
)

// ServiceInfo is what the operator needs once the stack is up.
type ServiceInfo struct {
	Endpoints   []model.ServiceEndpoint `json:"endpoints"`
	Credentials []model.Credential      `json:"credentials"`
	Model       string                  `json:"model"`
}

// BuildServiceInfo derives URLs and credentials from the configuration.
func BuildServiceInfo(cfg *config.Config) ServiceInfo {
	server := cfg.ServerURL()
	return ServiceInfo{
		Endpoints: []model.ServiceEndpoint{
			{Name: "MemMachine API", URL: server},
			{Name: "API Docs", URL: server + "/docs"},
			{Name: "Metrics", URL: server + "/metrics"},
			{Name: "Neo4j Browser", URL: cfg.Neo4jBrowserURL()},
			{Name: "Neo4j Bolt", URL: fmt.Sprintf("bolt://localhost:%d", cfg.Neo4j.BoltPort)},
			{Name: "PostgreSQL", URL: fmt.Sprintf("localhost:%d", cfg.Postgres.Port)},
			{Name: "Ollama", URL: cfg.OllamaURL()},
		},
		Credentials: []model.Credential{
			{
				Service:  "PostgreSQL",
				Username: cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				Database: cfg.Postgres.Database,
			},
			{
				Service:  "Neo4j",
				Username: cfg.Neo4j.User,
				Password: cfg.Neo4j.Password,
			},
		},
		Model: cfg.Ollama.Model,
	}
}
