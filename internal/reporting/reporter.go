// File: internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Reporter renders a Summary to an output.
type Reporter interface {
	Write(s Summary) error
	// Close finalizes the report and releases the output.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format ("json" or "text") writing to
// outputPath, or to stdout when outputPath is empty or "stdout".
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	r, err := NewWriter(format, writer)
	if err != nil {
		writer.Close()
		return nil, err
	}
	return r, nil
}

// NewWriter creates a reporter that takes ownership of w.
func NewWriter(format string, w io.WriteCloser) (Reporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &jsonReporter{w: w}, nil
	case "text":
		return &textReporter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

type jsonReporter struct {
	w io.WriteCloser
}

func (r *jsonReporter) Write(s Summary) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error { return r.w.Close() }

type textReporter struct {
	w io.WriteCloser
}

func (r *textReporter) Write(s Summary) error {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 50) + "\n")
	b.WriteString("PROVISIONING REPORT\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Run:          %s\n", s.RunID)
	fmt.Fprintf(&b, "Started:      %s\n", s.StartedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Finished:     %s\n", s.FinishedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Elapsed:      %.2fs\n", s.ElapsedSeconds)
	fmt.Fprintf(&b, "Total:        %d\n", s.Total)
	fmt.Fprintf(&b, "Successes:    %d\n", s.Successes)
	fmt.Fprintf(&b, "Failures:     %d\n", s.Failures)
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", s.SuccessRate)
	if len(s.FailureList) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range s.FailureList {
			fmt.Fprintf(&b, "  - %s (row %d) [%s] %s at %s\n",
				f.Identifier, f.Row, f.Kind, f.Message, f.Timestamp.Format(timeLayout))
		}
	}
	if _, err := io.WriteString(r.w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func (r *textReporter) Close() error { return r.w.Close() }

const timeLayout = "2006-01-02 15:04:05"
