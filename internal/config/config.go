package config

import (
	"os"
	"strings"

	"parity/internal/runinfo"

	"gopkg.in/yaml.v3"
)

// Config captures all runtime options for the parity checker.
type Config struct {
	Seed     int64              `yaml:"seed"`
	Workers  int                `yaml:"workers"`
	Problems []string           `yaml:"problems"`
	Run      RunConfig          `yaml:"run"`
	Logging  Logging            `yaml:"logging"`
	Report   ReportConfig       `yaml:"report"`
	Storage  StorageConfig      `yaml:"storage"`
	History  HistoryConfig      `yaml:"history"`
	Metrics  MetricsConfig      `yaml:"metrics"`
	RunInfo  *runinfo.BasicInfo `yaml:"-"`
}

// RunConfig controls trial scheduling for one entry point.
type RunConfig struct {
	TrialsPerRound int `yaml:"trials_per_round"`
	// MaxComplexity is the last round's complexity; rounds run 0..MaxComplexity.
	MaxComplexity int `yaml:"max_complexity"`
	TimeoutMs     int `yaml:"timeout_ms"`
	// FailFastThreshold stops the run after this many failing verdicts. Zero runs to completion.
	FailFastThreshold   int  `yaml:"fail_fast_threshold"`
	MaxDiscards         int  `yaml:"max_discards"`
	CounterexampleLimit int  `yaml:"counterexample_limit"`
	EdgeCaseLimit       int  `yaml:"edge_case_limit"`
	MaxDepth            int  `yaml:"max_depth"`
	TrialLogLimit       int  `yaml:"trial_log_limit"`
	CheckDesign         bool `yaml:"check_design"`
}

// Logging controls stdout logging behavior.
type Logging struct {
	Verbose               bool `yaml:"verbose"`
	ReportIntervalSeconds int  `yaml:"report_interval_seconds"`
}

// ReportConfig controls where run summaries are written.
type ReportConfig struct {
	Enabled     bool   `yaml:"enabled"`
	OutputDir   string `yaml:"output_dir"`
	Archive     bool   `yaml:"archive"`
	UseUUIDPath bool   `yaml:"use_uuid_path"`
}

// HistoryConfig configures the SQL run history table.
type HistoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// Enabled reports whether a history backend is configured.
func (h HistoryConfig) Enabled() bool {
	return h.Driver != "" && h.DSN != ""
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
}

// StorageConfig holds external storage settings.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// CloudEnabled reports whether any cloud storage backend is enabled.
func (s StorageConfig) CloudEnabled() bool {
	return s.GCS.Enabled || s.S3.Enabled
}

// S3Config configures S3 uploads (AWS and S3-compatible endpoints).
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures GCS uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	normalizeConfig(&cfg)
	cfg.RunInfo = runinfo.FromEnv()
	return cfg, nil
}

const (
	trialsPerRoundDefault      = 32
	maxComplexityDefault       = 8
	timeoutMsDefault           = 1000
	maxDiscardsDefault         = 1000
	counterexampleLimitDefault = 4
	edgeCaseLimitDefault       = 64
	maxDepthDefault            = 6
	reportIntervalDefault      = 30
	historyTableDefault        = "parity_runs"
)

// DefaultRunConfig returns the run settings used when nothing is configured.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		TrialsPerRound:      trialsPerRoundDefault,
		MaxComplexity:       maxComplexityDefault,
		TimeoutMs:           timeoutMsDefault,
		MaxDiscards:         maxDiscardsDefault,
		CounterexampleLimit: counterexampleLimitDefault,
		EdgeCaseLimit:       edgeCaseLimitDefault,
		MaxDepth:            maxDepthDefault,
	}
}

// Merge overlays the non-zero fields of override onto r.
// CheckDesign is only ever switched on by an override.
func (r RunConfig) Merge(override RunConfig) RunConfig {
	out := r
	if override.TrialsPerRound > 0 {
		out.TrialsPerRound = override.TrialsPerRound
	}
	if override.MaxComplexity > 0 {
		out.MaxComplexity = override.MaxComplexity
	}
	if override.TimeoutMs > 0 {
		out.TimeoutMs = override.TimeoutMs
	}
	if override.FailFastThreshold > 0 {
		out.FailFastThreshold = override.FailFastThreshold
	}
	if override.MaxDiscards > 0 {
		out.MaxDiscards = override.MaxDiscards
	}
	if override.CounterexampleLimit > 0 {
		out.CounterexampleLimit = override.CounterexampleLimit
	}
	if override.EdgeCaseLimit > 0 {
		out.EdgeCaseLimit = override.EdgeCaseLimit
	}
	if override.MaxDepth > 0 {
		out.MaxDepth = override.MaxDepth
	}
	if override.TrialLogLimit > 0 {
		out.TrialLogLimit = override.TrialLogLimit
	}
	if override.CheckDesign {
		out.CheckDesign = true
	}
	return out
}

// Normalize replaces invalid values with defaults.
func (r RunConfig) Normalize() RunConfig {
	def := DefaultRunConfig()
	if r.TrialsPerRound <= 0 {
		r.TrialsPerRound = def.TrialsPerRound
	}
	if r.MaxComplexity < 0 {
		r.MaxComplexity = 0
	}
	if r.TimeoutMs <= 0 {
		r.TimeoutMs = def.TimeoutMs
	}
	if r.FailFastThreshold < 0 {
		r.FailFastThreshold = 0
	}
	if r.MaxDiscards <= 0 {
		r.MaxDiscards = def.MaxDiscards
	}
	if r.CounterexampleLimit <= 0 {
		r.CounterexampleLimit = def.CounterexampleLimit
	}
	if r.EdgeCaseLimit <= 0 {
		r.EdgeCaseLimit = def.EdgeCaseLimit
	}
	if r.MaxDepth <= 0 {
		r.MaxDepth = def.MaxDepth
	}
	if r.TrialLogLimit < 0 {
		r.TrialLogLimit = 0
	}
	return r
}

func normalizeConfig(cfg *Config) {
	cfg.Run = cfg.Run.Normalize()
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logging.ReportIntervalSeconds < 0 {
		cfg.Logging.ReportIntervalSeconds = 0
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "reports"
	}
	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	cfg.History.Driver = strings.ToLower(strings.TrimSpace(cfg.History.Driver))
	if cfg.History.Table == "" {
		cfg.History.Table = historyTableDefault
	}
	problems := cfg.Problems[:0]
	for _, p := range cfg.Problems {
		if p = strings.TrimSpace(p); p != "" {
			problems = append(problems, p)
		}
	}
	cfg.Problems = problems
}

func defaultConfig() Config {
	return Config{
		Workers: 1,
		Run:     DefaultRunConfig(),
		Logging: Logging{
			ReportIntervalSeconds: reportIntervalDefault,
		},
		Report: ReportConfig{
			Enabled:   true,
			OutputDir: "reports",
			Archive:   true,
		},
		History: HistoryConfig{
			Table: historyTableDefault,
		},
	}
}
