package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 20, cfg.Retrieval.FetchK)
	assert.Equal(t, 4, cfg.Retrieval.FinalK)
	assert.Equal(t, 0.8, cfg.Retrieval.MaxL2)
	assert.Equal(t, 1.0, cfg.Retrieval.SoftMaxL2)
	assert.Equal(t, 1, cfg.Retrieval.MinKeep)
	assert.Equal(t, 0.05, cfg.Retrieval.MinGap)
	assert.Equal(t, 3, cfg.Retrieval.MaxOptions)
	assert.Equal(t, 0.1, cfg.Retrieval.MinGroupGap)
	assert.False(t, cfg.Retrieval.StrictSig)
	assert.True(t, cfg.Retrieval.EnableSigTiebreak)
	assert.Equal(t, 0.30, cfg.Retrieval.MinSigSim)
	assert.Equal(t, 0.015, cfg.Retrieval.MinSigSimGap)
	assert.True(t, cfg.Retrieval.EnableAnchorTiebreak)
	assert.Equal(t, 800, cfg.Retrieval.AnchorClipChars)

	assert.True(t, cfg.OOD.Enabled)
	assert.NotEmpty(t, cfg.OOD.AllowPatterns)
	assert.NotEmpty(t, cfg.OOD.DenyPatterns)
	assert.True(t, cfg.Coverage.Enabled)
	assert.Len(t, cfg.Coverage.CompareMarkers, 7)

	assert.Len(t, cfg.Entities.QueryAliases, 6)
	assert.Contains(t, cfg.Entities.QueryAliases, "mqtt")
	assert.Contains(t, cfg.Entities.QueryAliases, "aws_iot_jobs")
	assert.Equal(t, 2, cfg.Entities.DocAliases["kafka"].MinHits)
	assert.Equal(t, 1, cfg.Entities.DocAliases["mqtt"].MinHits)

	assert.Equal(t, 500, cfg.Splitter.ChunkSize)
	assert.Equal(t, 100, cfg.Splitter.ChunkOverlap)
	assert.Equal(t, 1800, cfg.Prompt.MaxCharsPerChunk)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 64, cfg.Embedding.BatchSize)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("RAGGATE_DB", "")
	t.Setenv("RAGGATE_REDIS_ADDR", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverlayKeepsUnsetDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "raggate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
retrieval:
  final_k: 6
  enable_sig_tiebreak: false
store:
  backend: memory
llm:
  provider: none
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Retrieval.FinalK)
	assert.False(t, cfg.Retrieval.EnableSigTiebreak)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "none", cfg.LLM.Provider)

	// Everything the file does not mention keeps its default.
	assert.Equal(t, 20, cfg.Retrieval.FetchK)
	assert.Equal(t, 0.8, cfg.Retrieval.MaxL2)
	assert.True(t, cfg.OOD.Enabled)
	assert.Equal(t, "llama3", cfg.LLM.Model)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("RAGGATE_REDIS_ADDR", "")

	path := filepath.Join(t.TempDir(), "nested", "raggate.yaml")
	cfg := DefaultConfig()
	cfg.Retrieval.MaxL2 = 0.65
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.Addr = "redis.internal:6379"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.65, loaded.Retrieval.MaxL2)
	assert.Equal(t, "redis", loaded.Store.Backend)
	assert.Equal(t, "redis.internal:6379", loaded.Store.Redis.Addr)
	assert.Equal(t, cfg.Entities.QueryAliases, loaded.Entities.QueryAliases)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("RAGGATE_DB", "/var/lib/raggate/vectors.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "/var/lib/raggate/vectors.db", cfg.Store.SQLite.Path)
}

func TestConfig_FileAPIKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	path := filepath.Join(t.TempDir(), "raggate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedding:
  api_key: sk-file
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey, "blank llm key still filled from env")
}

func TestBuild_DefaultsCompile(t *testing.T) {
	rt, err := DefaultConfig().Build()
	require.NoError(t, err)

	assert.Equal(t, 20, rt.Retrieval.FetchK)
	assert.Equal(t, 4, rt.Retrieval.Gate.FinalK)
	assert.Equal(t, 0.8, rt.Retrieval.Gate.MaxL2)
	assert.Equal(t, 3, rt.Retrieval.Ambiguity.MaxOptions)
	assert.Equal(t, 0.015, rt.Retrieval.Ambiguity.MinSignatureSimGap)
	assert.Equal(t, 800, rt.Retrieval.Ambiguity.AnchorClipChars)
	assert.True(t, rt.Retrieval.Ambiguity.KeepAmbiguousForGeneric)
	assert.NotEmpty(t, rt.Retrieval.Ambiguity.GenericQuery)

	assert.True(t, rt.OOD.Enabled)
	assert.NotEmpty(t, rt.OOD.Allow)
	assert.NotEmpty(t, rt.OOD.Deny)
	assert.NotEmpty(t, rt.Coverage.Compare)

	names := make([]string, 0, len(rt.Aliases))
	for _, a := range rt.Aliases {
		names = append(names, a.Name)
		assert.NotEmpty(t, a.Patterns)
	}
	assert.Equal(t, []string{"aws_iot", "aws_iot_jobs", "firmware_update", "http", "kafka", "mqtt"}, names)

	ruleNames := make([]string, 0, len(rt.DocRules))
	for _, r := range rt.DocRules {
		ruleNames = append(ruleNames, r.Name)
	}
	assert.Equal(t, []string{"aws_iot", "aws_iot_jobs", "firmware_update", "http", "kafka", "mqtt"}, ruleNames)
	assert.Equal(t, 2, rt.DocRules[4].MinHits, "kafka doc rule")

	assert.Equal(t, 1800, rt.MaxCharsPerChunk)
}

func TestBuild_InvalidPatternFails(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			"ood allow",
			func(c *Config) { c.OOD.AllowPatterns = append(c.OOD.AllowPatterns, `(unclosed`) },
			"ood.allow_patterns",
		},
		{
			"coverage markers",
			func(c *Config) { c.Coverage.CompareMarkers = []string{`)(`} },
			"coverage.compare_markers",
		},
		{
			"query aliases",
			func(c *Config) { c.Entities.QueryAliases["mqtt"] = []string{`[z-a]`} },
			"entities.query_aliases.mqtt",
		},
		{
			"doc aliases",
			func(c *Config) {
				c.Entities.DocAliases["kafka"] = DocAlias{MinHits: 1, Patterns: []string{`(unclosed`}}
			},
			"entities.doc_aliases.kafka",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			_, err := cfg.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBuild_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"final_k", func(c *Config) { c.Retrieval.FinalK = 0 }, "retrieval.final_k"},
		{"max_options", func(c *Config) { c.Retrieval.MaxOptions = 0 }, "retrieval.max_options"},
		{"overlap", func(c *Config) { c.Splitter.ChunkOverlap = 500 }, "splitter.chunk_overlap"},
		{"backend", func(c *Config) { c.Store.Backend = "faiss" }, "store.backend"},
		{"embedding", func(c *Config) { c.Embedding.Provider = "huggingface" }, "embedding.provider"},
		{"llm", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			_, err := cfg.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
