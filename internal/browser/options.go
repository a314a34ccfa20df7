// File: internal/browser/options.go
package browser

import (
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/access-provisioner/internal/config"
)

// Flag is one command line switch passed to the browser. A false value removes it.
type Flag struct {
	Name  string
	Value any
}

// AllocatorFlags lists the switches applied on top of chromedp's defaults.
func AllocatorFlags(cfg config.BrowserConfig, goos string) []Flag {
	// Containers usually have a tiny /dev/shm and no usable sandbox.
	flags := []Flag{
		{"headless", cfg.Headless},
		{"enable-automation", false},
		{"ignore-certificate-errors", cfg.IgnoreTLSErrors},
		{"disable-blink-features", "AutomationControlled"},
		{"disable-extensions", true},
		{"disable-gpu", cfg.Headless},
		{"no-sandbox", true},
		{"disable-dev-shm-usage", true},
	}
	if goos == "linux" {
		flags = append(flags, Flag{"disable-setuid-sandbox", true})
	}

	for _, arg := range cfg.Args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if found {
			flags = append(flags, Flag{name, value})
		} else {
			flags = append(flags, Flag{name, true})
		}
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for one browser process.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range AllocatorFlags(cfg, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
