// File: internal/config/run.go
package config

import (
	"fmt"
	"strings"
)

// ClientType is the operator's choice of client profile. It decides which
// subgroup every account in the run is attached to.
type ClientType string

const (
	ClientAdmin        ClientType = "Cliente ADM"
	ClientTrackingTMK  ClientType = "Rastreio/TMK"
	ClientTrackingView ClientType = "Rastreio/Consulta"
)

// DefaultSubgroup is used for unknown client types.
const DefaultSubgroup = "32"

// MaxContractField is the number of contract positions the search dialog offers.
const MaxContractField = 3

var subgroups = map[ClientType]string{
	ClientAdmin:        "32",
	ClientTrackingTMK:  "113",
	ClientTrackingView: "133",
}

// ClientTypes lists the known client profiles in display order.
func ClientTypes() []ClientType {
	return []ClientType{ClientAdmin, ClientTrackingTMK, ClientTrackingView}
}

// SubgroupFor maps a client type to its subgroup id. Matching ignores case and
// surrounding whitespace. Unknown types fall back to DefaultSubgroup.
func SubgroupFor(ct ClientType) (string, bool) {
	want := strings.TrimSpace(string(ct))
	for k, id := range subgroups {
		if strings.EqualFold(string(k), want) {
			return id, true
		}
	}
	return DefaultSubgroup, false
}

// RunConfiguration is the frozen set of parameters for one batch. It is built
// once before the first record and passed by value from then on.
type RunConfiguration struct {
	URL       string
	Frames    FrameConfig
	Selectors SelectorConfig
	Values    ValueConfig
	Timing    TimingConfig

	// SubgroupID is derived from the client type.
	SubgroupID string
	// CompanyPosition is the zero-based ordinal among repeated company matches.
	CompanyPosition int
}

// NewRunConfiguration freezes cfg and the operator's choices into a
// RunConfiguration. contractField is one-based.
func NewRunConfiguration(cfg *Config, clientType ClientType, contractField int) (RunConfiguration, error) {
	if cfg == nil {
		return RunConfiguration{}, fmt.Errorf("config must not be nil")
	}
	if contractField < 1 || contractField > MaxContractField {
		return RunConfiguration{}, fmt.Errorf("contract field must be between 1 and %d, got %d", MaxContractField, contractField)
	}
	if err := cfg.Target.Validate(); err != nil {
		return RunConfiguration{}, err
	}
	if err := cfg.Timing.Validate(); err != nil {
		return RunConfiguration{}, err
	}
	subgroup, _ := SubgroupFor(clientType)
	return RunConfiguration{
		URL:             cfg.Target.URL,
		Frames:          cfg.Target.Frames,
		Selectors:       cfg.Target.Selectors,
		Values:          cfg.Target.Values,
		Timing:          cfg.Timing,
		SubgroupID:      subgroup,
		CompanyPosition: contractField - 1,
	}, nil
}
