// File: internal/provision/helpers_test.go
package provision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/access-provisioner/internal/browser/browserfake"
	"github.com/xkilldash9x/access-provisioner/internal/config"
	"github.com/xkilldash9x/access-provisioner/internal/records"
)

// testRunConfig is the default run configuration with every delay removed.
func testRunConfig(t *testing.T) config.RunConfiguration {
	t.Helper()
	rc, err := config.NewRunConfiguration(config.NewDefaultConfig(), config.ClientAdmin, 1)
	require.NoError(t, err)
	rc.URL = "https://console.test/"
	rc.Timing = config.TimingConfig{
		Navigation:    time.Second,
		Element:       time.Second,
		Select:        100 * time.Millisecond,
		FrameAttempts: 3,
		FrameInterval: time.Millisecond,
	}
	return rc
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// console is a fake of the target system: a login frame whose access link
// loads the access form, whose submit loads the group form.
type console struct {
	page   *browserfake.Page
	login  *browserfake.Frame
	access *browserfake.Frame
	group  *browserfake.Frame
}

func newConsole(rc config.RunConfiguration) *console {
	s := rc.Selectors
	c := &console{
		page:   browserfake.NewPage(),
		login:  browserfake.NewFrame(rc.URL+"menu.do", s.Username, s.Password, s.LoginSubmit, s.AccessLink),
		access: browserfake.NewFrame(rc.URL+"usuarios_incluiAcesso.do?x=1", s.Frequency, s.Submit),
		group: browserfake.NewFrame(rc.URL+"usuarios_incluiGrupo.do", s.Subgroup,
			s.Manager1Login, s.Manager1Email, s.Manager2Login, s.Manager2Email,
			s.Name, s.Login, s.Email, s.ClientFilter, s.Observation,
			s.PersonType, s.Role, s.Sector,
			s.CompanySearch, s.Submit),
	}
	c.group.SetCount(s.Company, 3)
	c.page.SetFrames(c.login)
	c.login.OnClick(s.AccessLink, func() { c.page.SetFrames(c.login, c.access) })
	c.access.OnClick(s.Submit, func() { c.page.SetFrames(c.login, c.group) })
	return c
}

func validRecord(login string) records.Record {
	return records.Record{
		Name:         "User " + login,
		Login:        login,
		Email:        login + "@example.test",
		ClientFilter: "ACME",
	}
}

func testCreds() config.Credentials {
	return config.Credentials{Username: "rpa.bot", Password: "s3cret"}
}

// messages returns the messages of every observed entry at level.
func messages(logs *observer.ObservedLogs, level zapcore.Level) []string {
	var out []string
	for _, e := range logs.All() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
