package postprocessors

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("guard", func(map[string]any) (driven.PostProcessor, error) {
		return Guard{}, nil
	})
}

// ChunkerConfig converts chunking settings into the generic config map
// understood by the chunker builder.
func ChunkerConfig(s domain.ChunkingSettings) map[string]any {
	return map[string]any{
		"chunk_size":          s.ChunkSize,
		"overlap":             s.Overlap,
		"max_preserved_chars": s.MaxPreservedChars,
		"max_merged_chars":    s.MaxMergedChars,
		"claimed_skip_ratio":  s.ClaimedSkipRatio,
		"oversize_factor":     s.OversizeFactor,
	}
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): token budget per chunk (default: 450)
//   - overlap (int): token overlap for unstructured text (default: 100)
//   - max_preserved_chars (int): largest preserved definition (default: 2000)
//   - max_merged_chars (int): largest merged definition run (default: 3000)
//   - claimed_skip_ratio (float): skip sections this claimed (default: 0.8)
//   - oversize_factor (float): re-split above this budget multiple (default: 1.5)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
		if n := getIntFromConfig(cfg, "max_preserved_chars"); n > 0 {
			opts = append(opts, chunker.WithMaxPreservedChars(n))
		}
		if n := getIntFromConfig(cfg, "max_merged_chars"); n > 0 {
			opts = append(opts, chunker.WithMaxMergedChars(n))
		}
		if r := getFloatFromConfig(cfg, "claimed_skip_ratio"); r > 0 {
			opts = append(opts, chunker.WithClaimedSkipRatio(r))
		}
		if f := getFloatFromConfig(cfg, "oversize_factor"); f > 0 {
			opts = append(opts, chunker.WithOversizeFactor(f))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func getFloatFromConfig(cfg map[string]any, key string) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
