// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the root configuration for the provisioner. It is loaded once from
// defaults, an optional YAML file, and PROVISIONER_* environment variables.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Target   TargetConfig   `mapstructure:"target" yaml:"target"`
	Timing   TimingConfig   `mapstructure:"timing" yaml:"timing"`
	Run      RunConfig      `mapstructure:"run" yaml:"run"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how each per-record browser process is launched.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	ExecPath        string   `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string `mapstructure:"args" yaml:"args"`
}

// TargetConfig describes the web console being driven. Every locator is
// configurable because markup changes on the target are interface breaks.
type TargetConfig struct {
	URL       string         `mapstructure:"url" yaml:"url"`
	Frames    FrameConfig    `mapstructure:"frames" yaml:"frames"`
	Selectors SelectorConfig `mapstructure:"selectors" yaml:"selectors"`
	Values    ValueConfig    `mapstructure:"values" yaml:"values"`
}

// FrameConfig holds the URL substrings that identify each sub-document.
type FrameConfig struct {
	Login  string `mapstructure:"login" yaml:"login"`
	Access string `mapstructure:"access" yaml:"access"`
	Group  string `mapstructure:"group" yaml:"group"`
}

// SelectorConfig holds the CSS selectors for every control the workflow touches.
type SelectorConfig struct {
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	LoginSubmit string `mapstructure:"login_submit" yaml:"login_submit"`

	AccessLink string `mapstructure:"access_link" yaml:"access_link"`
	Frequency  string `mapstructure:"frequency" yaml:"frequency"`
	Subgroup   string `mapstructure:"subgroup" yaml:"subgroup"`
	Submit     string `mapstructure:"submit" yaml:"submit"`

	Manager1Login string `mapstructure:"manager1_login" yaml:"manager1_login"`
	Manager1Email string `mapstructure:"manager1_email" yaml:"manager1_email"`
	Manager2Login string `mapstructure:"manager2_login" yaml:"manager2_login"`
	Manager2Email string `mapstructure:"manager2_email" yaml:"manager2_email"`
	Name          string `mapstructure:"name" yaml:"name"`
	Login         string `mapstructure:"login" yaml:"login"`
	Email         string `mapstructure:"email" yaml:"email"`
	ClientFilter  string `mapstructure:"client_filter" yaml:"client_filter"`
	Observation   string `mapstructure:"observation" yaml:"observation"`

	PersonType string `mapstructure:"person_type" yaml:"person_type"`
	Role       string `mapstructure:"role" yaml:"role"`
	Sector     string `mapstructure:"sector" yaml:"sector"`

	CompanySearch string `mapstructure:"company_search" yaml:"company_search"`
	Company       string `mapstructure:"company" yaml:"company"`
	// SelectAllHook is a script expression evaluated in the group frame.
	SelectAllHook string `mapstructure:"select_all_hook" yaml:"select_all_hook"`
}

// ValueConfig holds the fixed option values written for every record.
type ValueConfig struct {
	Frequency   string `mapstructure:"frequency" yaml:"frequency"`
	PersonType  string `mapstructure:"person_type" yaml:"person_type"`
	Role        string `mapstructure:"role" yaml:"role"`
	Sector      string `mapstructure:"sector" yaml:"sector"`
	Observation string `mapstructure:"observation" yaml:"observation"`
}

// TimingConfig holds every wait and settle delay. These are constants sized
// for the target's latency, not adaptive values.
type TimingConfig struct {
	Navigation    time.Duration `mapstructure:"navigation" yaml:"navigation"`
	Element       time.Duration `mapstructure:"element" yaml:"element"`
	Select        time.Duration `mapstructure:"select" yaml:"select"`
	PageLoad      time.Duration `mapstructure:"page_load" yaml:"page_load"`
	Settle        time.Duration `mapstructure:"settle" yaml:"settle"`
	SearchSettle  time.Duration `mapstructure:"search_settle" yaml:"search_settle"`
	FinalSubmit   time.Duration `mapstructure:"final_submit" yaml:"final_submit"`
	InterRecord   time.Duration `mapstructure:"inter_record" yaml:"inter_record"`
	FrameAttempts int           `mapstructure:"frame_attempts" yaml:"frame_attempts"`
	FrameInterval time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
}

// RunConfig carries the per-run choices that used to come from the operator.
type RunConfig struct {
	ClientType    string `mapstructure:"client_type" yaml:"client_type"`
	ContractField int    `mapstructure:"contract_field" yaml:"contract_field"`
	LockFile      string `mapstructure:"lock_file" yaml:"lock_file"`
	EventLog      string `mapstructure:"event_log" yaml:"event_log"`
}

// ReportConfig controls where the run report goes.
type ReportConfig struct {
	Dir    string   `mapstructure:"dir" yaml:"dir"`
	Format string   `mapstructure:"format" yaml:"format"`
	S3     S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config enables archiving of report files to a bucket.
type S3Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	Region string `mapstructure:"region" yaml:"region"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables persistence of run results.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// MetricsConfig configures the Prometheus push gateway.
type MetricsConfig struct {
	PushURL string `mapstructure:"push_url" yaml:"push_url"`
	Job     string `mapstructure:"job" yaml:"job"`
}

// NewDefaultConfig returns a configuration populated with every default.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default value on the given viper instance.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "provisioner")
	v.SetDefault("logger.log_file", "provisioner.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.args", []string{})

	// -- Target --
	v.SetDefault("target.url", "https://files.jall.com.br")
	v.SetDefault("target.frames.login", "menu.do")
	v.SetDefault("target.frames.access", "usuarios_incluiAcesso.do")
	v.SetDefault("target.frames.group", "usuarios_incluiGrupo.do")

	v.SetDefault("target.selectors.username", "#l_username")
	v.SetDefault("target.selectors.password", "#l_password")
	v.SetDefault("target.selectors.login_submit", "#entrar")
	v.SetDefault("target.selectors.access_link", `a[href="usuarios_incluiAcesso.do"]`)
	v.SetDefault("target.selectors.frequency", "#frq_id")
	v.SetDefault("target.selectors.subgroup", "#subgrupo")
	v.SetDefault("target.selectors.submit", "#enviar")
	v.SetDefault("target.selectors.manager1_login", "#loginGestor")
	v.SetDefault("target.selectors.manager1_email", "#emailGestor")
	v.SetDefault("target.selectors.manager2_login", "#loginGestor2")
	v.SetDefault("target.selectors.manager2_email", "#emailGestor2")
	v.SetDefault("target.selectors.name", "#nome")
	v.SetDefault("target.selectors.login", "#usuario")
	v.SetDefault("target.selectors.email", "#email")
	v.SetDefault("target.selectors.client_filter", "#filtro_cliente")
	v.SetDefault("target.selectors.observation", "#obs")
	v.SetDefault("target.selectors.person_type", `select[name="tipo_pes_id"]`)
	v.SetDefault("target.selectors.role", `select[name="cargo"]`)
	v.SetDefault("target.selectors.sector", `select[name="setor"]`)
	v.SetDefault("target.selectors.company_search", `img[src="imagens/icones/lupa.gif"]`)
	v.SetDefault("target.selectors.company", `input[name="empresa_id"]`)
	v.SetDefault("target.selectors.select_all_hook", "checkAll()")

	v.SetDefault("target.values.frequency", "90")
	v.SetDefault("target.values.person_type", "1")
	v.SetDefault("target.values.role", "55")
	v.SetDefault("target.values.sector", "43")
	v.SetDefault("target.values.observation", "Automatizado pelo RPA")

	// -- Timing --
	v.SetDefault("timing.navigation", "30s")
	v.SetDefault("timing.element", "15s")
	v.SetDefault("timing.select", "5s")
	v.SetDefault("timing.page_load", "3s")
	v.SetDefault("timing.settle", "2s")
	v.SetDefault("timing.search_settle", "1s")
	v.SetDefault("timing.final_submit", "2s")
	v.SetDefault("timing.inter_record", "2s")
	v.SetDefault("timing.frame_attempts", 15)
	v.SetDefault("timing.frame_interval", "1s")

	// -- Run --
	v.SetDefault("run.client_type", string(ClientAdmin))
	v.SetDefault("run.contract_field", 1)
	v.SetDefault("run.lock_file", "provisioner.lock")
	v.SetDefault("run.event_log", "")

	// -- Report --
	v.SetDefault("report.dir", ".")
	v.SetDefault("report.format", "json")
	v.SetDefault("report.s3.bucket", "")
	v.SetDefault("report.s3.prefix", "reports/")
	v.SetDefault("report.s3.region", "")

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Metrics --
	v.SetDefault("metrics.push_url", "")
	v.SetDefault("metrics.job", "access_provisioner")
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets are commonly supplied without the prefix.
	_ = v.BindEnv("database.url", "PROVISIONER_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for _, p := range []*string{&cfg.Logger.LogFile, &cfg.Report.Dir, &cfg.Run.LockFile, &cfg.Run.EventLog} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("error expanding path %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return err
	}
	if err := c.Timing.Validate(); err != nil {
		return err
	}
	if c.Run.ContractField < 1 || c.Run.ContractField > MaxContractField {
		return fmt.Errorf("run.contract_field must be between 1 and %d", MaxContractField)
	}
	switch strings.ToLower(c.Report.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("report.format must be one of json, text")
	}
	return nil
}

// Validate checks that the target URL and every frame pattern are set.
func (t TargetConfig) Validate() error {
	if t.URL == "" {
		return fmt.Errorf("target.url is a required configuration field")
	}
	if t.Frames.Login == "" || t.Frames.Access == "" || t.Frames.Group == "" {
		return fmt.Errorf("target.frames.login, target.frames.access and target.frames.group must all be set")
	}
	return nil
}

// Validate checks that every wait is positive.
func (t TimingConfig) Validate() error {
	durations := map[string]time.Duration{
		"timing.navigation":     t.Navigation,
		"timing.element":        t.Element,
		"timing.select":         t.Select,
		"timing.frame_interval": t.FrameInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	delays := map[string]time.Duration{
		"timing.page_load":     t.PageLoad,
		"timing.settle":        t.Settle,
		"timing.search_settle": t.SearchSettle,
		"timing.final_submit":  t.FinalSubmit,
		"timing.inter_record":  t.InterRecord,
	}
	for name, d := range delays {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if t.FrameAttempts <= 0 {
		return fmt.Errorf("timing.frame_attempts must be a positive integer")
	}
	return nil
}
