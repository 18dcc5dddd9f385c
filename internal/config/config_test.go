package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lingobot.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
[whatsapp]
phone_number_id = "12345"
access_token = "token"
verify_token = "verify"

[storage]
base_url = "https://proj.supabase.co"
bucket = "voice-notes"
api_key = "sk"

[transcription]
endpoint = "https://api.runpod.ai/v2/abc/runsync"

[ai]
provider = "openai"
api_key = "sk-abc"

[auth]
jwt_secret = "secret"
`

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://graph.facebook.com/v19.0", cfg.WhatsApp.GraphURL)
	assert.Equal(t, 4, cfg.Retry.MaxRetries)
	assert.Equal(t, 3*time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 180*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Retry.Multiplier)
	assert.Equal(t, 300*time.Second, cfg.Transcription.Timeout)
	assert.Equal(t, 2, cfg.Chat.ContextPairs)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
[server]
port = 9000

[retry]
max_retries = 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LINGOBOT_SERVER_PORT", "7777")
	path := writeConfigFile(t, minimalConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.NoError(t, Validate(cfg))

	broken := *cfg
	broken.WhatsApp.AccessToken = ""
	assert.Error(t, Validate(&broken))

	broken = *cfg
	broken.AI.Provider = "mystery"
	assert.Error(t, Validate(&broken))

	broken = *cfg
	broken.AI.Provider = "ollama"
	broken.AI.APIKey = ""
	broken.AI.Model = "llama3"
	assert.NoError(t, Validate(&broken), "ollama needs no api key")
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	path := writeConfigFile(t, "# existing")
	assert.Error(t, InitConfig(path))

	fresh := filepath.Join(t.TempDir(), "new.toml")
	require.NoError(t, InitConfig(fresh))

	cfg, err := LoadConfig(fresh)
	require.NoError(t, err)
	assert.Equal(t, "your-phone-number-id", cfg.WhatsApp.PhoneNumberID)
}
