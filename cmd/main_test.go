// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/config"
	"github.com/xkilldash9x/access-provisioner/internal/observability"
)

// resetForTest isolates a test from the working directory, the environment
// and the global logger.
func resetForTest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	t.Setenv("PROVISIONER_LOGGER_LOG_FILE", filepath.Join(dir, "provisioner.log"))
	t.Setenv("PROVISIONER_LOGGER_LEVEL", "fatal")
	t.Setenv("PROVISIONER_RUN_LOCK_FILE", filepath.Join(dir, "provisioner.lock"))
	t.Setenv("PROVISIONER_REPORT_DIR", filepath.Join(dir, "reports"))
	t.Setenv(config.UsernameEnv, "")
	t.Setenv(config.PasswordEnv, "")

	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})

	origLauncher, origClient := newLauncher, checkClient
	t.Cleanup(func() {
		newLauncher, checkClient = origLauncher, origClient
		observability.ResetForTest()
	})
	return dir
}

// useLauncher routes run's browser sessions to l.
func useLauncher(l browser.Launcher) {
	newLauncher = func(*config.Config, *zap.Logger) browser.Launcher { return l }
}

// executeCommand runs a fresh command tree and returns its combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// writeFile creates name under dir with the given lines.
func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return p
}

const csvHeader = "loginGestor,emailGestor,loginGestor2,emailGestor2,nome,login,email,filtro_cliente"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
