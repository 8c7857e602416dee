package cli

import (
	"bufio"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestReadSecret_NonTerminalUsesReader(t *testing.T) {
	in := strings.NewReader("  sk-secret-value \nnext line\n")
	reader := bufio.NewReader(in)

	got := readSecret(in, reader)

	assert.Equal(t, "sk-secret-value", got)
	assert.Equal(t, "next line", readLine(reader))
}

func TestSettingsCmd_NoService(t *testing.T) {
	_, _, err := executeCommand(t, "", "settings")

	assert.EqualError(t, err, "settings service not configured")
}

func TestSettingsShowCmd(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.settings.Embedding.APIKey = "sk-1234567890abcdef"

	out, _, err := executeCommand(t, "", "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.Contains(t, out, "[LLM]")
	assert.Contains(t, out, "API Key: (not set)")
	assert.Contains(t, out, "k: 35 (adaptive: true, range 20-40)")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShowCmd_InvalidWarns(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.validateErr = errors.New("llm api key missing")

	out, _, err := executeCommand(t, "", "settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: llm api key missing")
}

func TestSettingsListCmd_Sorted(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.keys = map[string]string{"retrieval.k": "35", "cache.ttl": "12h0m0s"}

	out, _, err := executeCommand(t, "", "settings", "list")

	require.NoError(t, err)
	assert.Equal(t, "cache.ttl = 12h0m0s\nretrieval.k = 35\n", out)
}

func TestSettingsSetCmd(t *testing.T) {
	ts := setupTestServices(t)

	out, _, err := executeCommand(t, "", "settings", "set", "retrieval.k", "30")

	require.NoError(t, err)
	assert.Equal(t, "30", ts.settings.set["retrieval.k"])
	assert.Contains(t, out, "retrieval.k updated")
}

func TestSettingsSetCmd_Error(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.setErr = errors.New("unknown key")

	_, _, err := executeCommand(t, "", "settings", "set", "nope", "1")

	assert.ErrorContains(t, err, "unknown key")
}

func TestSettingsSetKeyCmd(t *testing.T) {
	ts := setupTestServices(t)

	out, _, err := executeCommand(t, "sk-abcdefghijklmnop\n", "settings", "set-key", "llm")

	require.NoError(t, err)
	assert.Equal(t, "sk-abcdefghijklmnop", ts.settings.set["llm.api_key"])
	assert.Contains(t, out, "llm API key stored (sk-a...mnop)")
}

func TestSettingsSetKeyCmd_Validation(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"unknown kind", "sk-x\n", []string{"settings", "set-key", "vectors"}, "unknown provider kind"},
		{"empty key", "\n", []string{"settings", "set-key", "embedding"}, "API key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestServices(t)

			_, _, err := executeCommand(t, tt.stdin, tt.args...)

			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSettingsEmbeddingCmd_Interactive(t *testing.T) {
	ts := setupTestServices(t)

	// choose Ollama, accept the default model; no key prompt for local providers
	out, _, err := executeCommand(t, "2\n\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, []string{"ollama", "nomic-embed-text", ""}, ts.settings.embeddingSet)
	assert.Contains(t, out, "Embedding provider configured: Ollama (local) (nomic-embed-text)")
}

func TestSettingsLLMCmd_Interactive(t *testing.T) {
	ts := setupTestServices(t)

	out, _, err := executeCommand(t, "2\ngpt-4o\nsk-test-key-123456\n", "settings", "llm")

	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "gpt-4o", "sk-test-key-123456"}, ts.settings.llmSet)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettingsLLMCmd_ValidationFails(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.providersErr = errors.New("401 unauthorized")

	out, _, err := executeCommand(t, "1\n\nghu_token_value\n", "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, out, "FAILED: 401 unauthorized")
	assert.Equal(t, "copilot", ts.settings.llmSet[0])
}

func TestSettingsValidateCmd(t *testing.T) {
	tests := []struct {
		name         string
		validateErr  error
		providersErr error
		wantErr      string
	}{
		{"ok", nil, nil, ""},
		{"invalid settings", errors.New("chunk size must be positive"), nil, "invalid settings"},
		{"provider down", nil, errors.New("connection refused"), "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServices(t)
			ts.settings.validateErr = tt.validateErr
			ts.settings.providersErr = tt.providersErr

			out, _, err := executeCommand(t, "", "settings", "validate")

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Contains(t, out, "Pinging providers... OK")
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
