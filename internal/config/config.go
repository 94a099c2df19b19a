package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"triagebot/internal/analysis"
	"triagebot/internal/domain"
	"triagebot/internal/httpx"
	"triagebot/internal/logging"
)

const (
	TrackerGitHub = "github"
	TrackerGitLab = "gitlab"
	TrackerFile   = "file"
)

const (
	defaultConfidenceThreshold = 0.70
	defaultPacingDelayMS       = 1000
	defaultAnalysisWorkers     = 4
)

var defaultExternalHTTPTimeoutSeconds = int(httpx.DefaultExternalHTTPTimeout.Seconds())

type Config struct {
	Tracker   string `yaml:"tracker"`
	InputPath string `yaml:"input_path"`

	GitHubAPIURL string `yaml:"github_api_url"`
	GitHubToken  string `yaml:"github_token"`
	GitHubRepo   string `yaml:"github_repo"`

	GitLabURL       string `yaml:"gitlab_url"`
	GitLabToken     string `yaml:"gitlab_token"`
	GitLabProjectID string `yaml:"gitlab_project_id"`

	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	ApplyLabels         bool    `yaml:"apply_labels"`
	PostComments        bool    `yaml:"post_comments"`
	PacingDelayMS       int     `yaml:"pacing_delay_ms"`
	AnalysisWorkers     int     `yaml:"analysis_workers"`
	CatalogPath         string  `yaml:"catalog_path"`

	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`

	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	LLMModel          string `yaml:"llm_model"`
	LLMSummaryEnabled bool   `yaml:"llm_summary_enabled"`

	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	LogLevel                   string `yaml:"log_level"`
	LogFormat                  string `yaml:"log_format"`
}

// Option adjusts the loaded config before defaults and validation run.
type Option func(*Config)

// WithInputPath switches the run to the file tracker reading path.
func WithInputPath(path string) Option {
	return func(c *Config) {
		if path == "" {
			return
		}
		c.InputPath = path
		c.Tracker = TrackerFile
	}
}

// WithDryRun turns off every tracker write.
func WithDryRun() Option {
	return func(c *Config) {
		c.ApplyLabels = false
		c.PostComments = false
	}
}

// LoadConfig reads .env (when present), then config.yaml (or CONFIG_PATH),
// then environment overrides, then opts. Every failure is a
// domain.ConfigurationError.
func LoadConfig(opts ...Option) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err == nil {
		logging.Debugf("config loaded .env")
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, domain.NewConfigurationError("parsing "+configPath, err)
		}
		logging.Infof("config loaded path=%s", configPath)
	}

	var envErrs []error
	collect := func(err error) {
		if err != nil {
			envErrs = append(envErrs, err)
		}
	}
	envOverride(&cfg.Tracker, "TRACKER")
	envOverride(&cfg.InputPath, "INPUT_PATH")
	envOverride(&cfg.GitHubAPIURL, "GITHUB_API_URL")
	envOverride(&cfg.GitHubToken, "GITHUB_TOKEN")
	envOverride(&cfg.GitHubRepo, "GITHUB_REPO")
	envOverride(&cfg.GitLabURL, "GITLAB_URL")
	envOverride(&cfg.GitLabToken, "GITLAB_TOKEN")
	envOverride(&cfg.GitLabProjectID, "GITLAB_PROJECT_ID")
	collect(envOverrideFloat(&cfg.ConfidenceThreshold, "CONFIDENCE_THRESHOLD"))
	envOverrideBool(&cfg.ApplyLabels, "APPLY_LABELS")
	envOverrideBool(&cfg.PostComments, "POST_COMMENTS")
	collect(envOverrideInt(&cfg.PacingDelayMS, "PACING_DELAY_MS"))
	collect(envOverrideInt(&cfg.AnalysisWorkers, "ANALYSIS_WORKERS"))
	envOverride(&cfg.CatalogPath, "CATALOG_PATH")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideBool(&cfg.LLMSummaryEnabled, "LLM_SUMMARY_ENABLED")
	collect(envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"))
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.LogFormat, "LOG_FORMAT")
	if len(envErrs) > 0 {
		return Config{}, domain.NewConfigurationError("invalid environment", errors.Join(envErrs...))
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Tracker = strings.ToLower(strings.TrimSpace(c.Tracker))
	if c.Tracker == "" {
		switch {
		case c.InputPath != "":
			c.Tracker = TrackerFile
		case c.GitHubToken != "" || c.GitHubRepo != "":
			c.Tracker = TrackerGitHub
		case c.GitLabConfigured():
			c.Tracker = TrackerGitLab
		}
	}
	// zero means unset, as for every numeric key
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.PacingDelayMS == 0 {
		c.PacingDelayMS = defaultPacingDelayMS
	}
	if c.AnalysisWorkers == 0 {
		c.AnalysisWorkers = defaultAnalysisWorkers
	}
	if c.DBPath == "" {
		c.DBPath = "./triagebot.db"
	}
	if c.ReportOutputDir == "" {
		c.ReportOutputDir = "./reports"
	}
	if c.ExternalHTTPTimeoutSeconds == 0 {
		c.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

func (c Config) validate() error {
	switch c.Tracker {
	case "", TrackerGitHub, TrackerGitLab, TrackerFile:
	default:
		return domain.NewConfigurationError(fmt.Sprintf("tracker must be github, gitlab or file, got '%s'", c.Tracker), nil)
	}

	gitlabFields := []struct{ name, val string }{
		{"gitlab_url", c.GitLabURL},
		{"gitlab_token", c.GitLabToken},
		{"gitlab_project_id", c.GitLabProjectID},
	}
	gitlabSet := 0
	for _, f := range gitlabFields {
		if f.val != "" {
			gitlabSet++
		}
	}
	if gitlabSet > 0 && gitlabSet < len(gitlabFields) {
		for _, f := range gitlabFields {
			if f.val == "" {
				return domain.NewConfigurationError(fmt.Sprintf("partial GitLab config: '%s' is not set (gitlab_url, gitlab_token, gitlab_project_id are required together)", f.name), nil)
			}
		}
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return domain.NewConfigurationError(fmt.Sprintf("invalid confidence_threshold '%v': must be between 0 and 1", c.ConfidenceThreshold), nil)
	}
	if c.PacingDelayMS < 0 {
		return domain.NewConfigurationError(fmt.Sprintf("invalid pacing_delay_ms '%d': must be >= 0", c.PacingDelayMS), nil)
	}
	if c.AnalysisWorkers < 1 {
		return domain.NewConfigurationError(fmt.Sprintf("invalid analysis_workers '%d': must be >= 1", c.AnalysisWorkers), nil)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return domain.NewConfigurationError(fmt.Sprintf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds), nil)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return domain.NewConfigurationError("invalid log_level", err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return domain.NewConfigurationError(fmt.Sprintf("log_format must be console or json, got '%s'", c.LogFormat), nil)
	}
	if c.LLMSummaryEnabled && c.AnthropicAPIKey == "" {
		return domain.NewConfigurationError("anthropic_api_key is required when llm_summary_enabled is true", nil)
	}
	if c.CatalogPath != "" {
		if _, err := analysis.LoadCatalog(c.CatalogPath); err != nil {
			return domain.NewConfigurationError(fmt.Sprintf("invalid catalog_path '%s'", c.CatalogPath), err)
		}
	}
	return nil
}

// ValidateTracker checks that the selected tracker can actually be reached.
// It is separate from LoadConfig so commands that never touch a tracker do
// not need tracker credentials.
func (c Config) ValidateTracker() error {
	switch c.Tracker {
	case TrackerGitHub:
		if c.GitHubToken == "" || c.GitHubRepo == "" {
			return domain.NewConfigurationError("tracker github needs github_token and github_repo", nil)
		}
		if strings.Count(strings.Trim(c.GitHubRepo, "/"), "/") != 1 {
			return domain.NewConfigurationError(fmt.Sprintf("github_repo must look like owner/name, got '%s'", c.GitHubRepo), nil)
		}
	case TrackerGitLab:
		if !c.GitLabConfigured() {
			return domain.NewConfigurationError("tracker gitlab needs gitlab_url, gitlab_token and gitlab_project_id", nil)
		}
	case TrackerFile:
		if c.InputPath == "" {
			return domain.NewConfigurationError("tracker file needs input_path", nil)
		}
		if c.ApplyLabels || c.PostComments {
			return domain.NewConfigurationError("apply_labels and post_comments need a live tracker, not a file", nil)
		}
	default:
		return domain.NewConfigurationError("no tracker configured (set tracker, github_*, gitlab_* or input_path)", nil)
	}
	return nil
}

func (c Config) GitLabConfigured() bool {
	return c.GitLabURL != "" && c.GitLabToken != "" && c.GitLabProjectID != ""
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.ReportChannelID != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func envOverrideFloat(field *float64, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
