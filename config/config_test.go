package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, key := range []string{"PROVIDER", "MODEL", "OLLAMA_HOST", "DATA_DIR", "BASE_URL",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "DEBUG"} {
		t.Setenv(EnvPrefix+key, "")
	}
	return home
}

func TestLoadFirstRunWritesTemplates(t *testing.T) {
	home := setHome(t)
	dataDir := filepath.Join(home, "data")
	t.Setenv(EnvPrefix+"DATA_DIR", dataDir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir())
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultMaxToolRounds, cfg.MaxToolRounds)
	assert.Equal(t, DefaultMemorySize, cfg.MemorySize)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)

	assert.FileExists(t, GetSettingsFilePath())
	assert.FileExists(t, UserConfigPath(dataDir))

	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLoadUserConfigAndEnvOverrides(t *testing.T) {
	home := setHome(t)
	dataDir := filepath.Join(home, "data")
	require.NoError(t, EnsureDir(dataDir))
	require.NoError(t, os.WriteFile(UserConfigPath(dataDir), []byte(`
provider = "anthropic"
model = "claude-x"

[copilot]
persona = "Be brief."
max_tool_rounds = 3
request_timeout = "30s"
`), 0600))

	t.Setenv(EnvPrefix+"DATA_DIR", dataDir)
	t.Setenv(EnvPrefix+"MODEL", "claude-y")
	t.Setenv(EnvPrefix+"ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "claude-y", cfg.Model)
	assert.Equal(t, "Be brief.", cfg.Persona)
	assert.Equal(t, 3, cfg.MaxToolRounds)
	assert.Equal(t, DefaultMemorySize, cfg.MemorySize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "sk-test", cfg.APIKey())
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	home := setHome(t)
	t.Setenv(EnvPrefix+"DATA_DIR", filepath.Join(home, "data"))
	t.Setenv(EnvPrefix+"PROVIDER", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestSetModelRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	require.NoError(t, SetModel(dataDir, "qwen3:8b"))

	cfg, err := LoadUserConfig(dataDir)
	require.NoError(t, err)
	assert.Equal(t, "qwen3:8b", cfg.Model)
	assert.Equal(t, DefaultOllamaHost, cfg.Ollama.Host)
}

func TestExpandPath(t *testing.T) {
	home := setHome(t)

	assert.Equal(t, filepath.Join(home, "notes"), ExpandPath("~/notes"))
	assert.Equal(t, "", ExpandPath(""))
}

func TestInitDebugLog(t *testing.T) {
	setHome(t)
	dir := t.TempDir()
	t.Cleanup(func() {
		SetLogger(nil)
		Debug = false
	})

	closeLog := InitDebugLog(dir)
	closeLog()
	assert.NoFileExists(t, filepath.Join(dir, "debug.log"))

	t.Setenv(EnvPrefix+"DEBUG", "1")
	closeLog = InitDebugLog(dir)
	Log.Debugf("[Test] hello %d", 42)
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Test] hello 42")
	assert.True(t, Debug)
}
