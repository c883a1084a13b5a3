package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired points CONFIG_PATH away from any real config file and sets
// the minimum environment Load needs to validate.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("EMBEDDING_API_KEY", "embed-key")
	t.Setenv("GENERATION_API_KEY", "gen-key")
	t.Setenv("PINECONE_API_KEY", "pc-key")
	t.Setenv("PINECONE_INDEX_HOST", "https://test-index.svc.pinecone.io")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "./data/newschat.db", cfg.DBPath)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, "https://api.jina.ai/v1", cfg.Embedding.BaseURL)
	assert.Equal(t, "jina-embeddings-v2-base-en", cfg.Embedding.Model)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Generation.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Generation.Model)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DB_PATH", "/var/lib/newschat/chat.db")
	t.Setenv("SESSION_TTL", "120")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("GENERATION_MODEL", "llama-3.1-8b-instant")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/var/lib/newschat/chat.db", cfg.DBPath)
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Generation.Model)
}

func TestLoad_ProviderKeyAliases(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("JINA_API_KEY", "jina-key")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("PINECONE_API_KEY", "pc-key")
	t.Setenv("PINECONE_INDEX_HOST", "https://test-index.svc.pinecone.io")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "jina-key", cfg.Embedding.APIKey)
	assert.Equal(t, "groq-key", cfg.Generation.APIKey)
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "4000"
session_ttl_seconds: 900
redis:
  addr: yaml-redis:6379
  db: 2
generation:
  model: from-yaml
`), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "yaml-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "from-yaml", cfg.Generation.Model)
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"4000\"\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
}

func TestLoad_MalformedYAML(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not: valid"), 0o644))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MissingProviderKey(t *testing.T) {
	setRequired(t)
	t.Setenv("GENERATION_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATION_API_KEY")
}

func TestLoad_InvalidTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TTL", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}
