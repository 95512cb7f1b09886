package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/textmodel/internal/engine/document"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, document.NewLineAuto, cfg.NewLineMode())
	assert.Equal(t, 700*time.Millisecond, time.Duration(cfg.Background.StartDelay))
	assert.Equal(t, 2000, cfg.Grammar.MaxTokenCount)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("test.toml", []byte(`
[document]
newline_mode = "windows"

[background]
start_delay = "1s"
row_quota = 50

[grammar]
dir = "/tmp/grammars"
watch = true
max_token_count = 500
script_timeout = "5ms"
`))
	require.NoError(t, err)
	assert.Equal(t, document.NewLineWindows, cfg.NewLineMode())
	assert.Equal(t, time.Second, time.Duration(cfg.Background.StartDelay))
	assert.Equal(t, 50, cfg.Background.RowQuota)
	assert.Equal(t, 20*time.Millisecond, time.Duration(cfg.Background.ResumeDelay))
	assert.Equal(t, "/tmp/grammars", cfg.Grammar.Dir)
	assert.True(t, cfg.Grammar.Watch)
	assert.Equal(t, 500, cfg.Grammar.MaxTokenCount)
	assert.Equal(t, 5*time.Millisecond, time.Duration(cfg.Grammar.ScriptTimeout))
	assert.Len(t, cfg.BackgroundOptions(), 4)
	assert.Len(t, cfg.CompileOptions(), 2)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		invalid bool
	}{
		{"unknown key", "[background]\nbogus = 1\n", false},
		{"bad duration", "[background]\nstart_delay = \"soon\"\n", false},
		{"syntax", "[background\n", false},
		{"newline mode", "[document]\nnewline_mode = \"mac\"\n", true},
		{"row quota", "[background]\nrow_quota = 0\n", true},
		{"negative delay", "[background]\nresume_delay = \"-1s\"\n", true},
		{"token count", "[grammar]\nmax_token_count = -1\n", true},
		{"watch without dir", "[grammar]\nwatch = true\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig("test.toml", []byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidConfig))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(dir, "textmodel.toml")
	require.NoError(t, os.WriteFile(path, []byte("[grammar]\nreload_delay = \"250ms\"\n"), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Grammar.ReloadDelay))
}

func TestDurationText(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))

	var back Duration
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, d, back)
	assert.Error(t, back.UnmarshalText([]byte("x")))
}
