// File: cmd/root_test.go
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/access-provisioner/internal/config"
)

func TestRootCmd_VersionFlag(t *testing.T) {
	resetForTest(t)
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "provisioner version "+Version)
}

func TestVersionCmd(t *testing.T) {
	resetForTest(t)
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "provisioner version "+Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	resetForTest(t)
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "drives a browser through the access console")
	for _, sub := range []string{"run", "validate", "template", "check", "reports", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestConfigLayering(t *testing.T) {
	dir := resetForTest(t)
	cfgFile := writeFile(t, dir, "config.yaml",
		"target:",
		"  url: https://console.example.test/",
		"run:",
		"  client_type: Rastreio/TMK",
		"  contract_field: 2",
	)
	t.Setenv("PROVISIONER_TIMING_INTER_RECORD", "5s")

	var captured *config.Config
	root := NewRootCommand()
	runCmd, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	runCmd.RunE = func(cmd *cobra.Command, args []string) error {
		captured, err = getConfigFromContext(cmd.Context())
		return err
	}

	root.SetArgs([]string{"--config", cfgFile, "run", "-r", "x.csv", "--contract-field", "3", "--headless"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NotNil(t, captured)

	assert.Equal(t, "https://console.example.test/", captured.Target.URL, "file overrides default")
	assert.Equal(t, "Rastreio/TMK", captured.Run.ClientType, "file value kept without flag")
	assert.Equal(t, 3, captured.Run.ContractField, "flag overrides file")
	assert.True(t, captured.Browser.Headless)
	assert.Equal(t, "5s", captured.Timing.InterRecord.String(), "env overrides default")
}

func TestConfigInvalid(t *testing.T) {
	resetForTest(t)
	t.Setenv("PROVISIONER_RUN_CONTRACT_FIELD", "7")
	_, err := executeCommand(t, "reports")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
}

func TestConfigFileUnreadable(t *testing.T) {
	dir := resetForTest(t)
	bad := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("target: [unterminated"), 0o644))

	_, err := executeCommand(t, "--config", bad, "reports")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize configuration")
}

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	require.Error(t, err)

	want := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, want))
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestFlagKeysExist(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	for flag, key := range flagKeys {
		assert.True(t, v.IsSet(key), "flag %s maps to unknown key %s", flag, key)
	}
}
