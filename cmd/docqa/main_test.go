package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/extractors/html"
	"github.com/custodia-labs/docqa/internal/extractors/markdown"
)

func TestBuildPipeline_Defaults(t *testing.T) {
	p, err := buildPipeline(domain.DefaultAppSettings().Chunking)

	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
}

func TestBuildPipeline_UnknownProcessor(t *testing.T) {
	s := domain.DefaultAppSettings().Chunking
	s.Pipeline.Processors = append(s.Pipeline.Processors, "ocr")

	_, err := buildPipeline(s)

	assert.Error(t, err)
}

func TestBuildPipeline_DoesNotMutateSettings(t *testing.T) {
	s := domain.DefaultAppSettings().Chunking
	s.Pipeline.ProcessorConfigs = map[string]map[string]any{"chunker": {"chunk_size": 200}}

	_, err := buildPipeline(s)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"chunk_size": 200}, s.Pipeline.ProcessorConfigs["chunker"])
}

func TestSupportedExtensions(t *testing.T) {
	got := supportedExtensions([]driven.Extractor{markdown.New(), html.New(), markdown.New()})

	assert.Equal(t, []string{".htm", ".html", ".markdown", ".md", ".mdown", ".xhtml"}, got)
}

func TestLayoutUnder(t *testing.T) {
	home := filepath.Join("data", "docqa")

	got := layoutUnder(home)

	assert.Equal(t, filepath.Join(home, "vectors"), got.Vectors)
	assert.Equal(t, filepath.Join(home, "cache"), got.Cache)
	assert.Equal(t, filepath.Join(home, "prompts"), got.Prompts)
}
