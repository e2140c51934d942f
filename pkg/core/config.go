package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for a vectormem client.
//
// Every memory setting must be explicit: different embedding models imply
// different index dimensions, and mixing them silently corrupts search
// quality, so Validate rejects configurations that rely on implied
// defaults.
//
// Example:
//
//	config := &core.Config{
//	    Backend: core.BackendConfig{
//	        Provider: "remote",
//	        Config: map[string]interface{}{
//	            "base_url": "https://vectors.example.com",
//	            "api_key":  os.Getenv("VECTORMEM_API_KEY"),
//	        },
//	    },
//	    LLM: core.LLMConfig{
//	        APIKey: os.Getenv("LLM_API_KEY"),
//	        Model:  "gpt-4o-mini",
//	    },
//	    Memory: core.MemoryConfig{
//	        EmbeddingModel: "llama-text-embed-v2",
//	        StoreName:      "assistant-memories",
//	        CloudProvider:  "aws",
//	        Region:         "us-east-1",
//	    },
//	}
type Config struct {
	// Backend contains vector backend configuration.
	Backend BackendConfig `json:"backend"`

	// LLM contains chat-inference provider configuration.
	LLM LLMConfig `json:"llm"`

	// Memory contains the initial memory settings (embedding model, store
	// name, cloud placement).
	Memory MemoryConfig `json:"memory"`

	// Embedder contains embedding provider configuration. Required only
	// for the self-hosted backends; the remote service embeds server-side.
	Embedder *EmbedderConfig `json:"embedder,omitempty"`
}

// BackendConfig contains configuration for the vector backend.
//
// Supported providers: remote, sqlite, postgres, mysql.
type BackendConfig struct {
	// Provider is the backend provider name.
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For remote: base_url, api_key
	// For sqlite: db_path
	// For postgres: host, port, user, password, db_name, ssl_mode
	// For mysql: host, port, user, password, db_name
	Config map[string]interface{} `json:"config"`
}

// LLMConfig contains configuration for the chat-inference provider.
//
// Any OpenAI-compatible endpoint is reachable through BaseURL.
type LLMConfig struct {
	// APIKey is the API key for the inference endpoint.
	APIKey string `json:"api_key"`

	// Model is the inference model name (e.g. "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, provider default if
	// empty).
	BaseURL string `json:"base_url,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider used by
// the self-hosted backends.
type EmbedderConfig struct {
	// APIKey is the API key for the embedding endpoint.
	APIKey string `json:"api_key"`

	// Model is the embedding model name.
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty"`
}

// MemoryConfig contains the initial memory settings. All of them are
// runtime-switchable afterwards through Client.SwitchConfiguration.
type MemoryConfig struct {
	// EmbeddingModel is the embedding model name. Determines the
	// dimension of newly created stores.
	EmbeddingModel string `json:"embedding_model"`

	// StoreName is the logical memory store name. The backing index is
	// resolved lazily on first use.
	StoreName string `json:"store_name"`

	// CloudProvider and Region select the placement of newly created
	// indexes on the remote backend. Ignored by self-hosted backends.
	CloudProvider string `json:"cloud_provider,omitempty"`
	Region        string `json:"region,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - BACKEND_PROVIDER (remote, sqlite, postgres, mysql)
//   - VECTORMEM_API_URL, VECTORMEM_API_KEY (remote)
//   - SQLITE_PATH (sqlite)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE (postgres)
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE (mysql)
//   - LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - EMBEDDING_MODEL, EMBEDDING_API_KEY, EMBEDDING_BASE_URL
//   - MEMORY_STORE_NAME, CLOUD_PROVIDER, CLOUD_REGION
//
// Returns a Config instance. The result still goes through Validate in
// NewClient, so missing required values surface there.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("BACKEND_PROVIDER", "remote")

	backendConfig := make(map[string]interface{})
	switch provider {
	case "remote":
		backendConfig = map[string]interface{}{
			"base_url": os.Getenv("VECTORMEM_API_URL"),
			"api_key":  os.Getenv("VECTORMEM_API_KEY"),
		}
	case "sqlite":
		backendConfig = map[string]interface{}{
			"db_path": getEnvOrDefault("SQLITE_PATH", "./vectormem.db"),
		}
	case "postgres":
		backendConfig = map[string]interface{}{
			"host":     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":     getEnvOrDefault("POSTGRES_PORT", "5432"),
			"user":     getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password": os.Getenv("POSTGRES_PASSWORD"),
			"db_name":  getEnvOrDefault("POSTGRES_DATABASE", "vectormem"),
			"ssl_mode": getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		backendConfig = map[string]interface{}{
			"host":     getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":     getEnvOrDefault("MYSQL_PORT", "3306"),
			"user":     getEnvOrDefault("MYSQL_USER", "root"),
			"password": os.Getenv("MYSQL_PASSWORD"),
			"db_name":  getEnvOrDefault("MYSQL_DATABASE", "vectormem"),
		}
	}

	config := &Config{
		Backend: BackendConfig{
			Provider: provider,
			Config:   backendConfig,
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			Model:   os.Getenv("LLM_MODEL"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
		},
		Memory: MemoryConfig{
			EmbeddingModel: os.Getenv("EMBEDDING_MODEL"),
			StoreName:      os.Getenv("MEMORY_STORE_NAME"),
			CloudProvider:  os.Getenv("CLOUD_PROVIDER"),
			Region:         os.Getenv("CLOUD_REGION"),
		},
	}

	if provider != "remote" {
		config.Embedder = &EmbedderConfig{
			APIKey:  os.Getenv("EMBEDDING_API_KEY"),
			Model:   os.Getenv("EMBEDDING_MODEL"),
			BaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		}
	}

	return config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Required regardless of backend: the embedding model, the store name and
// the inference model. The remote backend additionally requires cloud
// placement, and the self-hosted backends require an embedder.
func (c *Config) Validate() error {
	if c.Memory.EmbeddingModel == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: embedding model is required", ErrInvalidConfig))
	}
	if c.Memory.StoreName == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: store name is required", ErrInvalidConfig))
	}
	if c.LLM.Model == "" {
		return NewMemoryError("Validate", fmt.Errorf("%w: inference model is required", ErrInvalidConfig))
	}
	switch c.Backend.Provider {
	case "remote":
		if c.Memory.CloudProvider == "" || c.Memory.Region == "" {
			return NewMemoryError("Validate", fmt.Errorf("%w: cloud provider and region are required for the remote backend", ErrInvalidConfig))
		}
	case "sqlite", "postgres", "mysql":
		if c.Embedder == nil || c.Embedder.Model == "" {
			return NewMemoryError("Validate", fmt.Errorf("%w: embedder configuration is required for the %s backend", ErrInvalidConfig, c.Backend.Provider))
		}
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search checks the current directory first, then up to 5 directory
// levels up, and returns the first match.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
