package services

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Environment variables that override stored credentials.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIKey      = "OPENAI_API_KEY"
	EnvCopilotToken   = "COPILOT_ACCESS_TOKEN"
	EnvRerankerKey    = "DOCQA_RERANKER_API_KEY"
	pipelineKeyPrefix = "chunking.pipeline."
)

// defaultOllamaURL is used when Ollama is selected without a base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings stored in a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. aiValidator may be nil.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get returns the stored settings over the defaults, with environment
// overrides applied. Unparseable stored values are ignored with a warning.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for _, def := range settingTable {
		raw, ok := s.configStore.Get(def.key)
		if !ok {
			continue
		}
		if err := def.apply(&settings, raw); err != nil {
			logger.Warn("settings: ignoring %s: %v", def.key, err)
		}
	}

	// A provider switch without an explicit model uses that provider's default.
	if _, ok := s.configStore.Get("embedding.model"); !ok {
		if m, ok := domain.DefaultEmbeddingModels()[settings.Embedding.Provider]; ok {
			settings.Embedding.Model = m
		}
	}
	if _, ok := s.configStore.Get("llm.model"); !ok {
		if m, ok := domain.DefaultLLMModels()[settings.LLM.Provider]; ok {
			settings.LLM.Model = m
		}
	}
	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaURL
	}
	if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaURL
	}

	s.loadPipelineConfigs(&settings.Chunking.Pipeline)
	s.applyEnv(&settings)
	return &settings, nil
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if key := s.getenv(EnvOpenAIKey); key != "" {
		if settings.Embedding.Provider == domain.AIProviderOpenAI {
			settings.Embedding.APIKey = key
		}
		if settings.LLM.Provider == domain.AIProviderOpenAI {
			settings.LLM.APIKey = key
		}
	}
	if token := s.getenv(EnvCopilotToken); token != "" && settings.LLM.Provider == domain.AIProviderCopilot {
		settings.LLM.APIKey = token
	}
	if key := s.getenv(EnvRerankerKey); key != "" {
		settings.Reranker.APIKey = key
	}
}

// loadPipelineConfigs reads chunking.pipeline.<processor>.<option> keys.
func (s *SettingsService) loadPipelineConfigs(cfg *domain.PipelineConfig) {
	for _, key := range s.configStore.Keys() {
		rest, ok := strings.CutPrefix(key, pipelineKeyPrefix)
		if !ok {
			continue
		}
		name, option, ok := strings.Cut(rest, ".")
		if !ok || name == "" || option == "" {
			continue
		}
		val, _ := s.configStore.Get(key)
		if cfg.ProcessorConfigs == nil {
			cfg.ProcessorConfigs = make(map[string]map[string]any)
		}
		if cfg.ProcessorConfigs[name] == nil {
			cfg.ProcessorConfigs[name] = make(map[string]any)
		}
		cfg.ProcessorConfigs[name][option] = val
	}
}

// Set parses value for key, validates it and stores it.
func (s *SettingsService) Set(key, value string) error {
	if strings.HasPrefix(key, pipelineKeyPrefix) {
		return s.configStore.Set(key, parseLoose(value))
	}
	def, ok := settingByKey(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	scratch := domain.DefaultAppSettings()
	if err := def.apply(&scratch, value); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if err := s.configStore.Set(key, def.stored(&scratch)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// parseLoose turns a CLI string into the most specific TOML scalar.
func parseLoose(value string) any {
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// Keys returns every recognised key with its effective value. Secrets are masked.
func (s *SettingsService) Keys() (map[string]string, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settingTable))
	for _, def := range settingTable {
		v := def.format(settings)
		if def.secret {
			v = maskSecret(v)
		}
		out[def.key] = v
	}
	return out, nil
}

// SettingKeys lists every recognised key, sorted.
func SettingKeys() []string {
	keys := make([]string, len(settingTable))
	for i, def := range settingTable {
		keys[i] = def.key
	}
	sort.Strings(keys)
	return keys
}

func maskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 8:
		return "****"
	default:
		return "****" + v[len(v)-4:]
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(EnvOpenAIKey) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	baseURL := ""
	if provider == domain.AIProviderOllama {
		baseURL = s.configStore.GetString("embedding.base_url")
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
	}
	return s.save(map[string]any{
		"embedding.provider": string(provider),
		"embedding.model":    model,
		"embedding.base_url": baseURL,
	}, "embedding.api_key", apiKey)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not generate answers", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	baseURL := ""
	if provider == domain.AIProviderOllama {
		baseURL = s.configStore.GetString("llm.base_url")
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
	}
	return s.save(map[string]any{
		"llm.provider": string(provider),
		"llm.model":    model,
		"llm.base_url": baseURL,
	}, "llm.api_key", apiKey)
}

// save stores values and, when non-empty, the secret.
func (s *SettingsService) save(values map[string]any, secretKey, secret string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.configStore.Set(k, values[k]); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	if secret != "" {
		if err := s.configStore.Set(secretKey, secret); err != nil {
			return fmt.Errorf("save %s: %w", secretKey, err)
		}
	}
	return nil
}

// Validate checks that the current settings can run the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding provider %s is not configured (set embedding.api_key or %s)",
			settings.Embedding.Provider, EnvOpenAIKey))
	}
	if !settings.LLM.IsConfigured() {
		env := EnvOpenAIKey
		if settings.LLM.Provider == domain.AIProviderCopilot {
			env = EnvCopilotToken
		}
		errs = append(errs, fmt.Errorf("LLM provider %s is not configured (set llm.api_key or %s)",
			settings.LLM.Provider, env))
	}
	if settings.Reranker.Provider == domain.AIProviderHTTP && settings.Reranker.BaseURL == "" {
		errs = append(errs, errors.New("reranker provider http requires reranker.base_url"))
	}
	r := settings.Retrieval
	if r.MinK > r.MaxK {
		errs = append(errs, fmt.Errorf("retrieval.min_k (%d) exceeds retrieval.max_k (%d)", r.MinK, r.MaxK))
	}
	c := settings.Chunking
	if c.Overlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunking.overlap (%d) must be below chunking.chunk_size (%d)", c.Overlap, c.ChunkSize))
	}
	return errors.Join(errs...)
}

// ValidateProviders pings the configured embedding, LLM and reranker providers.
func (s *SettingsService) ValidateProviders() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return errors.Join(
		s.aiValidator.ValidateEmbedding(&settings.Embedding),
		s.aiValidator.ValidateLLM(&settings.LLM),
		s.aiValidator.ValidateReranker(&settings.Reranker),
	)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// --- Setting table ---

// setting binds a config key to a field of AppSettings.
type setting struct {
	key    string
	secret bool
	apply  func(s *domain.AppSettings, raw any) error
	format func(s *domain.AppSettings) string
	stored func(s *domain.AppSettings) any
}

func settingByKey(key string) (setting, bool) {
	for _, def := range settingTable {
		if def.key == key {
			return def, true
		}
	}
	return setting{}, false
}

// field builds a setting from a parser and an accessor.
func field[T any](key string, parse func(any) (T, error), ptr func(*domain.AppSettings) *T) setting {
	return setting{
		key: key,
		apply: func(s *domain.AppSettings, raw any) error {
			v, err := parse(raw)
			if err != nil {
				return err
			}
			*ptr(s) = v
			return nil
		},
		format: func(s *domain.AppSettings) string { return formatValue(*ptr(s)) },
		stored: func(s *domain.AppSettings) any { return storedValue(*ptr(s)) },
	}
}

func secret(def setting) setting {
	def.secret = true
	return def
}

// tierField is a setting on one in-memory cache tier.
func tierField[T any](typ domain.CacheType, name string, parse func(any) (T, error), get func(domain.CacheTierSettings) T, set func(*domain.CacheTierSettings, T)) setting {
	return setting{
		key: "cache." + string(typ) + "." + name,
		apply: func(s *domain.AppSettings, raw any) error {
			v, err := parse(raw)
			if err != nil {
				return err
			}
			t := s.Cache.Tiers[typ]
			set(&t, v)
			s.Cache.Tiers[typ] = t
			return nil
		},
		format: func(s *domain.AppSettings) string { return formatValue(get(s.Cache.Tiers[typ])) },
		stored: func(s *domain.AppSettings) any { return storedValue(get(s.Cache.Tiers[typ])) },
	}
}

// persistentTTL is the default TTL of one disk partition.
func persistentTTL(typ domain.CacheType) setting {
	return setting{
		key: "cache.persistent_ttl." + string(typ),
		apply: func(s *domain.AppSettings, raw any) error {
			d, err := parseDuration(raw)
			if err != nil {
				return err
			}
			s.Cache.PersistentTTL[typ] = d
			return nil
		},
		format: func(s *domain.AppSettings) string { return s.Cache.PersistentTTL[typ].String() },
		stored: func(s *domain.AppSettings) any { return s.Cache.PersistentTTL[typ].String() },
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, ",")
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func storedValue(v any) any {
	switch x := v.(type) {
	case time.Duration:
		return x.String()
	case domain.AIProvider:
		return string(x)
	default:
		return v
	}
}

var settingTable = buildSettingTable()

func buildSettingTable() []setting {
	table := []setting{
		field("embedding.provider", parseProvider(domain.AllEmbeddingProviders()...), func(s *domain.AppSettings) *domain.AIProvider { return &s.Embedding.Provider }),
		field("embedding.model", parseString, func(s *domain.AppSettings) *string { return &s.Embedding.Model }),
		field("embedding.base_url", parseString, func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL }),
		secret(field("embedding.api_key", parseString, func(s *domain.AppSettings) *string { return &s.Embedding.APIKey })),
		field("embedding.batch_size", parseInt(1), func(s *domain.AppSettings) *int { return &s.Embedding.BatchSize }),

		field("llm.provider", parseProvider(domain.AllLLMProviders()...), func(s *domain.AppSettings) *domain.AIProvider { return &s.LLM.Provider }),
		field("llm.model", parseString, func(s *domain.AppSettings) *string { return &s.LLM.Model }),
		field("llm.base_url", parseString, func(s *domain.AppSettings) *string { return &s.LLM.BaseURL }),
		secret(field("llm.api_key", parseString, func(s *domain.AppSettings) *string { return &s.LLM.APIKey })),
		field("llm.temperature", parseFloat(0, 2), func(s *domain.AppSettings) *float64 { return &s.LLM.Temperature }),
		field("llm.max_tokens", parseInt(1), func(s *domain.AppSettings) *int { return &s.LLM.MaxTokens }),

		field("reranker.provider", parseProvider(domain.AIProviderLexical, domain.AIProviderHTTP), func(s *domain.AppSettings) *domain.AIProvider { return &s.Reranker.Provider }),
		field("reranker.model", parseString, func(s *domain.AppSettings) *string { return &s.Reranker.Model }),
		field("reranker.base_url", parseString, func(s *domain.AppSettings) *string { return &s.Reranker.BaseURL }),
		secret(field("reranker.api_key", parseString, func(s *domain.AppSettings) *string { return &s.Reranker.APIKey })),

		field("chunking.chunk_size", parseInt(16), func(s *domain.AppSettings) *int { return &s.Chunking.ChunkSize }),
		field("chunking.overlap", parseInt(0), func(s *domain.AppSettings) *int { return &s.Chunking.Overlap }),
		field("chunking.max_preserved_chars", parseInt(1), func(s *domain.AppSettings) *int { return &s.Chunking.MaxPreservedChars }),
		field("chunking.max_merged_chars", parseInt(1), func(s *domain.AppSettings) *int { return &s.Chunking.MaxMergedChars }),
		field("chunking.claimed_skip_ratio", parseFloat(0, 1), func(s *domain.AppSettings) *float64 { return &s.Chunking.ClaimedSkipRatio }),
		field("chunking.oversize_factor", parseFloat(1, 10), func(s *domain.AppSettings) *float64 { return &s.Chunking.OversizeFactor }),
		field("chunking.processors", parseList, func(s *domain.AppSettings) *[]string { return &s.Chunking.Pipeline.Processors }),

		field("retrieval.k", parseInt(1), func(s *domain.AppSettings) *int { return &s.Retrieval.K }),
		field("retrieval.min_k", parseInt(1), func(s *domain.AppSettings) *int { return &s.Retrieval.MinK }),
		field("retrieval.max_k", parseInt(1), func(s *domain.AppSettings) *int { return &s.Retrieval.MaxK }),
		field("retrieval.adaptive_k", parseBool, func(s *domain.AppSettings) *bool { return &s.Retrieval.AdaptiveK }),
		field("retrieval.top_k_reranked", parseInt(1), func(s *domain.AppSettings) *int { return &s.Retrieval.TopKReranked }),
		field("retrieval.similarity_threshold", parseFloat(0, 2), func(s *domain.AppSettings) *float64 { return &s.Retrieval.SimilarityThreshold }),
		field("retrieval.answer_cache", parseBool, func(s *domain.AppSettings) *bool { return &s.Retrieval.AnswerCache }),
		field("retrieval.reranker_cache", parseBool, func(s *domain.AppSettings) *bool { return &s.Retrieval.RerankerCache }),
		field("retrieval.heuristics", parseList, func(s *domain.AppSettings) *[]string { return &s.Retrieval.Heuristics }),

		field("vector_index.m", parseInt(2), func(s *domain.AppSettings) *int { return &s.VectorIndex.M }),
		field("vector_index.ef_construction", parseInt(1), func(s *domain.AppSettings) *int { return &s.VectorIndex.EfConstruction }),
		field("vector_index.ef_search", parseInt(1), func(s *domain.AppSettings) *int { return &s.VectorIndex.EfSearch }),

		field("cache.ttl", parseDuration, func(s *domain.AppSettings) *time.Duration { return &s.Cache.TTL }),
		field("cache.sweep_every", parseInt(1), func(s *domain.AppSettings) *int { return &s.Cache.SweepEvery }),
		field("cache.persistent", parseBool, func(s *domain.AppSettings) *bool { return &s.Cache.Persistent }),
		field("cache.codec", parseChoice("zstd", "lz4", "none"), func(s *domain.AppSettings) *string { return &s.Cache.Codec }),

		field("concurrency.max_concurrent_questions", parseInt(1), func(s *domain.AppSettings) *int { return &s.Concurrency.MaxConcurrentQuestions }),
		field("concurrency.provider_timeout", parseDuration, func(s *domain.AppSettings) *time.Duration { return &s.Concurrency.ProviderTimeout }),
		field("concurrency.requests_per_second", parseFloat(0, 10000), func(s *domain.AppSettings) *float64 { return &s.Concurrency.RequestsPerSecond }),

		field("question_log.enabled", parseBool, func(s *domain.AppSettings) *bool { return &s.QuestionLog.Enabled }),
		field("question_log.retention_days", parseInt(0), func(s *domain.AppSettings) *int { return &s.QuestionLog.RetentionDays }),
	}

	for _, typ := range domain.MemoryCacheTypes() {
		// 0 leaves the query TTL tier unbounded; the LRU tiers need room for one entry.
		minCapacity := 1
		if typ == domain.CacheTypeQuery {
			minCapacity = 0
		}
		table = append(table,
			tierField(typ, "capacity", parseInt(minCapacity),
				func(t domain.CacheTierSettings) int { return t.Capacity },
				func(t *domain.CacheTierSettings, v int) { t.Capacity = v }),
			tierField(typ, "ttl", parseDuration,
				func(t domain.CacheTierSettings) time.Duration { return t.TTL },
				func(t *domain.CacheTierSettings, v time.Duration) { t.TTL = v }),
		)
	}
	for _, typ := range domain.PersistentCacheTypes() {
		table = append(table, persistentTTL(typ))
	}
	return table
}

// --- Parsers: stored TOML values or CLI strings ---

func parseString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case nil:
		return "", errors.New("missing value")
	default:
		return fmt.Sprint(v), nil
	}
}

func parseInt(minVal int) func(any) (int, error) {
	return func(raw any) (int, error) {
		var n int
		switch v := raw.(type) {
		case int:
			n = v
		case int64:
			n = int(v)
		case float64:
			if v != float64(int(v)) {
				return 0, fmt.Errorf("%v is not an integer", v)
			}
			n = int(v)
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return 0, fmt.Errorf("%q is not an integer", v)
			}
			n = parsed
		default:
			return 0, fmt.Errorf("unexpected %T", raw)
		}
		if n < minVal {
			return 0, fmt.Errorf("must be at least %d", minVal)
		}
		return n, nil
	}
}

func parseFloat(minVal, maxVal float64) func(any) (float64, error) {
	return func(raw any) (float64, error) {
		var f float64
		switch v := raw.(type) {
		case float64:
			f = v
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return 0, fmt.Errorf("%q is not a number", v)
			}
			f = parsed
		default:
			return 0, fmt.Errorf("unexpected %T", raw)
		}
		if f < minVal || f > maxVal {
			return 0, fmt.Errorf("must be between %g and %g", minVal, maxVal)
		}
		return f, nil
	}
}

func parseBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("unexpected %T", raw)
	}
}

func parseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%q is not a duration", v)
		}
		if d < 0 {
			return 0, errors.New("must not be negative")
		}
		return d, nil
	default:
		return 0, fmt.Errorf("unexpected %T, want a duration string such as \"12h\"", raw)
	}
}

func parseList(raw any) ([]string, error) {
	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected %T in list", item)
			}
			items = append(items, str)
		}
	case string:
		items = strings.Split(v, ",")
	default:
		return nil, fmt.Errorf("unexpected %T", raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

func parseProvider(allowed ...domain.AIProvider) func(any) (domain.AIProvider, error) {
	return func(raw any) (domain.AIProvider, error) {
		str, err := parseString(raw)
		if err != nil {
			return "", err
		}
		p := domain.AIProvider(strings.ToLower(str))
		if !slices.Contains(allowed, p) {
			return "", fmt.Errorf("provider %q is not one of %v", str, allowed)
		}
		return p, nil
	}
}

func parseChoice(allowed ...string) func(any) (string, error) {
	return func(raw any) (string, error) {
		str, err := parseString(raw)
		if err != nil {
			return "", err
		}
		str = strings.ToLower(str)
		if !slices.Contains(allowed, str) {
			return "", fmt.Errorf("%q is not one of %s", str, strings.Join(allowed, ", "))
		}
		return str, nil
	}
}
