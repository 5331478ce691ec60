package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the full raggate configuration tree as it appears in the
// YAML file. Load fills it from defaults plus the file; Build compiles it
// into the immutable Runtime the pipeline consumes.
type Config struct {
	Retrieval RetrievalConfig `yaml:"retrieval"`
	OOD       OODConfig       `yaml:"ood"`
	Coverage  CoverageConfig  `yaml:"coverage"`
	Entities  EntitiesConfig  `yaml:"entities"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RetrievalConfig tunes the distance gates and the ambiguity resolver.
type RetrievalConfig struct {
	FetchK      int     `yaml:"fetch_k"`
	FinalK      int     `yaml:"final_k"`
	MaxL2       float64 `yaml:"max_l2"`
	SoftMaxL2   float64 `yaml:"soft_max_l2"`
	MinKeep     int     `yaml:"min_keep"`
	MinGap      float64 `yaml:"min_gap"`
	MaxOptions  int     `yaml:"max_options"`
	MinGroupGap float64 `yaml:"min_group_gap"`

	StrictSig                 bool `yaml:"strict_sig"`
	EnableEntityResolve       bool `yaml:"enable_entity_resolve"`
	RequireFullEntityCoverage bool `yaml:"require_full_entity_coverage"`

	// KeepAmbiguousForGeneric presents options instead of auto-resolving
	// when an overview-style query spans several document groups.
	KeepAmbiguousForGeneric bool     `yaml:"keep_ambiguous_for_generic"`
	GenericQueryPatterns    []string `yaml:"generic_query_patterns"`
	FacetQueryPatterns      []string `yaml:"facet_query_patterns"`

	EnableSigTiebreak bool    `yaml:"enable_sig_tiebreak"`
	MinSigSim         float64 `yaml:"min_sig_sim"`
	MinSigSimGap      float64 `yaml:"min_sig_sim_gap"`

	EnableAnchorTiebreak bool    `yaml:"enable_anchor_tiebreak"`
	MinAnchorSim         float64 `yaml:"min_anchor_sim"`
	MinAnchorSimGap      float64 `yaml:"min_anchor_sim_gap"`
	AnchorClipChars      int     `yaml:"anchor_clip_chars"`
}

// OODConfig lists the domain gate's allow and deny patterns.
type OODConfig struct {
	Enabled       bool     `yaml:"enabled"`
	AllowPatterns []string `yaml:"allow_patterns"`
	DenyPatterns  []string `yaml:"deny_patterns"`
}

// CoverageConfig classifies queries that must cite every entity they name.
type CoverageConfig struct {
	Enabled        bool     `yaml:"enabled"`
	CompareMarkers []string `yaml:"compare_markers"`
	GenericMarkers []string `yaml:"generic_markers"`
}

// EntitiesConfig holds both entity alias tables. QueryAliases detect
// entity mentions in queries and may match loosely; DocAliases tag chunks
// at ingest time and should be narrower, each with its own hit threshold.
type EntitiesConfig struct {
	QueryAliases map[string][]string `yaml:"query_aliases"`
	DocAliases   map[string]DocAlias `yaml:"doc_aliases"`
}

// DocAlias is one document-side tagging rule: a chunk is tagged once it
// matches at least MinHits distinct patterns.
type DocAlias struct {
	MinHits  int      `yaml:"min_hits"`
	Patterns []string `yaml:"patterns"`
}

// SplitterConfig tunes chunking at ingest time.
type SplitterConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	ChunkOverlap  int `yaml:"chunk_overlap"`
	MinChunkChars int `yaml:"min_chunk_chars"`
}

// PromptConfig bounds the generated prompt.
type PromptConfig struct {
	MaxCharsPerChunk int `yaml:"max_chars_per_chunk"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, hash
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	BatchSize  int    `yaml:"batch_size"`
	Dimensions int    `yaml:"dimensions"`
	Cache      bool   `yaml:"cache"`
}

// LLMConfig selects and configures the answer generator.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // ollama, openai, none
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// StoreConfig selects the vector store backend and its settings.
type StoreConfig struct {
	Backend  string              `yaml:"backend"` // memory, sqlite, pgvector, redis
	SQLite   SQLiteStoreConfig   `yaml:"sqlite"`
	Postgres PostgresStoreConfig `yaml:"pgvector"`
	Redis    RedisStoreConfig    `yaml:"redis"`
}

// SQLiteStoreConfig configures the sqlite vector store.
type SQLiteStoreConfig struct {
	Path  string `yaml:"path"`
	Table string `yaml:"table"`
}

// PostgresStoreConfig configures the pgvector store.
type PostgresStoreConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// RedisStoreConfig configures the redis vector store.
type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CatalogConfig points at the document tag registry.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration: an IoT/messaging
// documentation corpus with conservative gating. Every threshold here is
// a starting point meant to be tuned per corpus in the YAML file.
func DefaultConfig() *Config {
	return &Config{
		Retrieval: RetrievalConfig{
			FetchK:      20,
			FinalK:      4,
			MaxL2:       0.8,
			SoftMaxL2:   1.0,
			MinKeep:     1,
			MinGap:      0.05,
			MaxOptions:  3,
			MinGroupGap: 0.1,

			StrictSig:                 false,
			EnableEntityResolve:       true,
			RequireFullEntityCoverage: false,

			KeepAmbiguousForGeneric: true,
			GenericQueryPatterns: []string{
				`\bbest\s+practice(s)?\b`,
				`\boverall\b`,
				`\bhigh-?level\b`,
				`\bexplain\b`,
				`\bguide\b`,
				`\bhow\s+to\b`,
				`\bwhat\s+is\b`,
			},
			FacetQueryPatterns: nil,

			EnableSigTiebreak: true,
			MinSigSim:         0.30,
			MinSigSimGap:      0.015,

			EnableAnchorTiebreak: true,
			MinAnchorSim:         0.3,
			MinAnchorSimGap:      0.01,
			AnchorClipChars:      800,
		},

		OOD: OODConfig{
			Enabled: true,
			AllowPatterns: []string{
				`\bmqtt\b`,
				`\bcoap\b`,
				`\bzigbee\b`,
				`\bthread\b`,
				`\bmatter\b`,
				`\bble\b|\bbluetooth\b`,

				`\biot\b`,
				`\baws\s*iot\b|\biot\s*core\b|\baws\s*iot\s*core\b`,
				`\bthing\s*shadow\b|\bdevice\s*shadow\b`,

				`\btopic\b|\btopic\s*filter\b`,
				`\bpublish\b|\bsubscribe\b|\bpub\s*/\s*sub\b|\bpubsub\b`,
				`\bqos\s*[012]\b`,
				`\bbroker\b|\bclient\b|\bretain(ed)?\b|\bretained\s+message\b`,
				`\blast\s+will\b|\blwt\b`,

				`\baws\s*iot\s*jobs?\b|\biot\s*jobs?\b`,
				`(?=.*\bjob(s)?\b)(?=.*\b(execution|document|device|rollout|timeout|status|lifecycle|target|deployment|cancel)\b)`,
				`\bjob\s*execution\b`,
				`\bjob\s*document\b`,
				`\bjob\s*status\b|\bstatus\s*detail(s)?\b`,
				`\brollout\b.*\bjob(s)?\b|\bjob(s)?\b.*\brollout\b`,
				`\btimeout\b.*\bjob(s)?\b|\bjob(s)?\b.*\btimeout\b`,
			},
			DenyPatterns: []string{
				`\bstock(s)?\b|\bshare\s*price\b|\bticker\b|\bearnings\b|\bportfolio\b|\bdividend\b|\bmarket\s*cap\b`,
				`\bweather\b|\bforecast\b|\btemperature\b|\brain\b|\bhumidity\b|\buv\b`,
				`\bmovie\b|\bnetflix\b|\banime\b|\bcelebrity\b|\bdrama\b|\bseason\s*\d+\b`,
				`\brecipe\b|\bcook(ing)?\b|\bcalories\b|\bprotein\b|\bcarb(s)?\b`,
				`\btravel\b|\bhotel\b|\bflight\b|\bvisa\b|\bitinerary\b|\bairbnb\b`,
				`\bfootball\b|\bsoccer\b|\bnba\b|\bnfl\b|\bmlb\b|\bscore\b|\bstandings\b`,
				`\bdiagnos(is|e)\b|\bmedicine\b|\bskin\b|\bacne\b|\bdermatitis\b|\brash\b|\bsteroid\b`,
			},
		},

		Coverage: CoverageConfig{
			Enabled: true,
			CompareMarkers: []string{
				`\bvs\.?\b`,
				`\bversus\b`,
				`\bcompare\b`,
				`\bcomparison\b`,
				`\bdifference\s+between\b`,
				`\bpros?\s+and\s+cons?\b`,
				`\btrade-?offs?\b`,
			},
			GenericMarkers: []string{
				`\bbest\s+practice(s)?\b`,
				`\boverall\b`,
				`\bhigh-?level\b`,
				`\bexplain\b`,
				`\bguide\b`,
				`\bhow\s+to\b`,
				`\bwhat\s+is\b`,
			},
		},

		Entities: EntitiesConfig{
			// Query-side detection can be broad.
			QueryAliases: map[string][]string{
				"mqtt": {
					`\bmqtt\b`, `\bbroker\b`, `\bqos\b`, `\btopic\b`,
					`\bpublish\b`, `\bsubscribe\b`, `\bretain(ed)?\b`,
					`\blwt\b|\blast\s+will\b`,
				},
				"http": {
					`\bhttp\b`, `\bhttps\b`, `\brest\b`,
					`\bheader(s)?\b`, `\bstatus\s*code(s)?\b`,
					`\brequest\b`, `\bresponse\b`,
				},
				"kafka": {
					`\bkafka\b`,
					`\bproducer\b`, `\bconsumer\b`,
					`\bpartition(s)?\b`, `\boffset(s)?\b`,
					`\bconsumer\s*group(s)?\b`,
				},
				"aws_iot": {
					`\baws\s*iot\b`, `\biot\s*core\b`, `\baws\s*iot\s*core\b`,
				},
				"aws_iot_jobs": {
					`\baws\s*iot\s*jobs?\b|\biot\s*jobs?\b`,
					`\bjob\s*execution\b`,
					`\bjob\s*document\b`,
					`\bjob\s*status\b`,
					`\brollout\b`,
					`\btimeout\b`,
				},
				"firmware_update": {
					`\bfirmware\b`,
					`\bota\b|\bover-?the-?air\b`,
					`\bbootloader\b`,
					`\bdfu\b`,
					`\bupdate\b|\bupgrade\b`,
				},
			},
			// Document-side tagging must be narrower: these patterns run
			// over chunk text, not queries, and false tags poison the
			// ambiguity resolver.
			DocAliases: map[string]DocAlias{
				"mqtt": {
					MinHits: 1,
					Patterns: []string{
						`\bmqtt\b`,
						`(?=.*\bmqtt\b)(?=.*\b(qos|topic|publish|subscribe|broker)\b)`,
						`\bqos\s*[012]\b`,
						`\btopic\s*filter\b`,
						`\bconnect\s+packet\b|\bconnack\b|\bpublish\s+packet\b|\bsubscribe\s+packet\b`,
					},
				},
				"kafka": {
					MinHits: 2,
					Patterns: []string{
						`\bApache\s+Kafka\b`,
						`\bconsumer\s+group\b`,
						`\boffset\s+commit\b`,
						`\bpartition\s+leader\b|\bleader\s+election\b`,
						`\bKafka\s+broker(s)?\b`,
					},
				},
				"http": {
					MinHits: 2,
					Patterns: []string{
						`\bHTTP/1\.1\b|\bHTTP/2\b|\bHTTP/3\b`,
						`\bStatus\s*Code\b|\bstatus\s+code\s+[1-5]\d\d\b`,
						`\bRequest\s+Header\b|\bResponse\s+Header\b`,
						`\bContent-Type\b|\bAuthorization\b|\bUser-Agent\b`,
					},
				},
				"aws_iot": {
					MinHits: 1,
					Patterns: []string{
						`\bAWS\s+IoT\s+Core\b`,
						`\bThing\s+Shadow\b|\bDevice\s+Shadow\b`,
						`\bAWS\s+IoT\s+Jobs\b`,
					},
				},
				"aws_iot_jobs": {
					MinHits: 2,
					Patterns: []string{
						`\bAWS\s+IoT\s+Jobs?\b`,
						`\bJob\s+Execution\b`,
						`\bJob\s+Document\b`,
						`\bRollout\b`,
					},
				},
				"firmware_update": {
					MinHits: 2,
					Patterns: []string{
						`\bOver-?the-?Air\b|\bOTA\b`,
						`\bfirmware\s+update\b|\bfirmware\s+upgrade\b`,
						`\bbootloader\b`,
						`\bDFU\b|\bDevice\s+Firmware\s+Update\b`,
					},
				},
			},
		},

		Splitter: SplitterConfig{
			ChunkSize:     500,
			ChunkOverlap:  100,
			MinChunkChars: 20,
		},

		Prompt: PromptConfig{
			MaxCharsPerChunk: 1800,
		},

		Embedding: EmbeddingConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			BatchSize:  64,
			Dimensions: 1536,
			Cache:      true,
		},

		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3",
			Temperature: 0,
		},

		Store: StoreConfig{
			Backend: "sqlite",
			SQLite: SQLiteStoreConfig{
				Path: "./raggate.db",
			},
			Postgres: PostgresStoreConfig{
				ConnString: "postgres://localhost:5432/raggate",
			},
			Redis: RedisStoreConfig{
				Addr: "localhost:6379",
			},
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file: defaults first, then the
// file's values on top, then environment overrides. A missing file is not
// an error; you get defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides fills credentials and endpoints from the environment.
// File values win; the environment only fills blanks.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = key
		}
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" && c.LLM.BaseURL == "" {
		c.LLM.BaseURL = host
	}
	if path := os.Getenv("RAGGATE_DB"); path != "" {
		c.Store.SQLite.Path = path
	}
	if addr := os.Getenv("RAGGATE_REDIS_ADDR"); addr != "" {
		c.Store.Redis.Addr = addr
	}
}
