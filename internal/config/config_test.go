// File: internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "https://files.jall.com.br", cfg.Target.URL)
	assert.Equal(t, "menu.do", cfg.Target.Frames.Login)
	assert.Equal(t, "#enviar", cfg.Target.Selectors.Submit)
	assert.Equal(t, "checkAll()", cfg.Target.Selectors.SelectAllHook)
	assert.Equal(t, "90", cfg.Target.Values.Frequency)
	assert.Equal(t, 30*time.Second, cfg.Timing.Navigation)
	assert.Equal(t, 15*time.Second, cfg.Timing.Element)
	assert.Equal(t, 5*time.Second, cfg.Timing.Select)
	assert.Equal(t, 15, cfg.Timing.FrameAttempts)
	assert.Equal(t, time.Second, cfg.Timing.FrameInterval)
	assert.Equal(t, 1, cfg.Run.ContractField)
	assert.NoError(t, cfg.Validate())
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing url", func(c *Config) { c.Target.URL = "" }, "target.url is a required"},
		{"missing frame", func(c *Config) { c.Target.Frames.Group = "" }, "target.frames"},
		{"zero element wait", func(c *Config) { c.Timing.Element = 0 }, "timing.element must be a positive duration"},
		{"negative delay", func(c *Config) { c.Timing.InterRecord = -time.Second }, "timing.inter_record must not be negative"},
		{"zero attempts", func(c *Config) { c.Timing.FrameAttempts = 0 }, "timing.frame_attempts must be a positive integer"},
		{"contract field too high", func(c *Config) { c.Run.ContractField = 4 }, "run.contract_field must be between 1 and 3"},
		{"unknown report format", func(c *Config) { c.Report.Format = "xml" }, "report.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("zero settle delays are allowed", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Timing.PageLoad = 0
		cfg.Timing.Settle = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := []byte(`
target:
  url: https://console.example.test
timing:
  frame_attempts: 3
  inter_record: 0s
run:
  contract_field: 2
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		v := viper.New()
		SetDefaults(v)
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "https://console.example.test", cfg.Target.URL)
		assert.Equal(t, 3, cfg.Timing.FrameAttempts)
		assert.Equal(t, time.Duration(0), cfg.Timing.InterRecord)
		assert.Equal(t, 2, cfg.Run.ContractField)
		// Untouched sections keep defaults.
		assert.Equal(t, "#l_username", cfg.Target.Selectors.Username)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("timing.frame_attempts", -1)
		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestSubgroupFor(t *testing.T) {
	tests := []struct {
		in    ClientType
		want  string
		known bool
	}{
		{ClientAdmin, "32", true},
		{ClientTrackingTMK, "113", true},
		{"  rastreio/consulta ", "133", true},
		{"Something else", DefaultSubgroup, false},
	}
	for _, tt := range tests {
		got, known := SubgroupFor(tt.in)
		assert.Equal(t, tt.want, got, string(tt.in))
		assert.Equal(t, tt.known, known, string(tt.in))
	}
}

func TestNewRunConfiguration(t *testing.T) {
	cfg := NewDefaultConfig()

	rc, err := NewRunConfiguration(cfg, ClientTrackingTMK, 3)
	require.NoError(t, err)
	assert.Equal(t, "113", rc.SubgroupID)
	assert.Equal(t, 2, rc.CompanyPosition)
	assert.Equal(t, cfg.Target.URL, rc.URL)

	// The run configuration is a copy; later edits to cfg do not leak in.
	cfg.Target.Selectors.Name = "#changed"
	assert.Equal(t, "#nome", rc.Selectors.Name)

	_, err = NewRunConfiguration(cfg, ClientAdmin, 0)
	assert.Error(t, err)
	_, err = NewRunConfiguration(nil, ClientAdmin, 1)
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	t.Run("reads dotenv file", func(t *testing.T) {
		t.Setenv(UsernameEnv, "")
		t.Setenv(PasswordEnv, "")
		os.Unsetenv(UsernameEnv)
		os.Unsetenv(PasswordEnv)

		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("APP_USERNAME=ops.bot\nAPP_PASSWORD=s3cret\n"), 0o600))

		creds, err := LoadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "ops.bot", creds.Username)
		assert.Equal(t, "s3cret", creds.Password)
		assert.NoError(t, creds.Validate())
	})

	t.Run("environment wins over file", func(t *testing.T) {
		t.Setenv(PasswordEnv, "from-env")
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("APP_PASSWORD=from-file\n"), 0o600))

		creds, err := LoadCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", creds.Password)
	})

	t.Run("missing file falls back to default username", func(t *testing.T) {
		t.Setenv(UsernameEnv, "")
		t.Setenv(PasswordEnv, "")
		os.Unsetenv(UsernameEnv)
		os.Unsetenv(PasswordEnv)

		creds, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.env"))
		require.NoError(t, err)
		assert.Equal(t, DefaultUsername, creds.Username)
		assert.ErrorIs(t, creds.Validate(), ErrMissingPassword)
	})

	t.Run("password is redacted", func(t *testing.T) {
		c := Credentials{Username: "u", Password: "hunter2"}
		assert.NotContains(t, c.String(), "hunter2")
	})
}
