// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/access-provisioner/internal/browser"
	"github.com/xkilldash9x/access-provisioner/internal/records"
)

// -- Browser Mocks --

// MockLauncher mocks browser.Launcher.
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context) (browser.Session, error) {
	args := m.Called(ctx)
	var s browser.Session
	if v := args.Get(0); v != nil {
		s = v.(browser.Session)
	}
	return s, args.Error(1)
}

// MockSession mocks browser.Session.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSession) Page() browser.Page {
	args := m.Called()
	return args.Get(0).(browser.Page)
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// -- Record Source Mock --

// MockSource mocks records.Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Rows(ctx context.Context) ([]records.Row, error) {
	args := m.Called(ctx)
	var rows []records.Row
	if v := args.Get(0); v != nil {
		rows = v.([]records.Row)
	}
	return rows, args.Error(1)
}

// -- Outcome Recorder Mock --

// MockRecorder mocks the runner's outcome recorder.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordOutcome(kind string, d time.Duration) {
	m.Called(kind, d)
}

var (
	_ browser.Launcher = (*MockLauncher)(nil)
	_ browser.Session  = (*MockSession)(nil)
	_ records.Source   = (*MockSource)(nil)
)
