// Package config provides centralized configuration management for guardian.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file and GUARDIAN_* environment variables (sheet.url is read from
// GUARDIAN_SHEET_URL). The sheet URL also honours SHEET_URL and
// VITE_SHEET_URL so existing deployments keep working.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	// Zone names must resolve in minimal containers without a zoneinfo tree.
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// ErrMissing is wrapped by the validators when required values are absent.
var ErrMissing = errors.New("missing required configuration")

// Config holds all configuration parameters for the application.
type Config struct {
	Sheet  SheetConfig
	Parse  ParseConfig
	Server ServerConfig
	Store  StoreConfig
	Report ReportConfig
	Jira   JiraConfig
	GitHub GitHubConfig
}

// SheetConfig describes where and how to download the sheet export.
type SheetConfig struct {
	URL          string
	Timeout      time.Duration
	PollInterval time.Duration
	MaxRetries   int
	Backoff      time.Duration
	MaxBackoff   time.Duration
}

// ParseConfig tunes normalization.
type ParseConfig struct {
	// Timezone is an IANA name; empty means the local zone
	Timezone string
	// Keyed selects header based column lookup
	Keyed bool
}

// ServerConfig holds the exporter HTTP settings.
type ServerConfig struct {
	ListenAddress string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

// StoreConfig locates the snapshot database.
type StoreConfig struct {
	Path   string
	Retain int
}

// ReportConfig holds aggregation settings.
type ReportConfig struct {
	NotComplyMinutes int
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	BaseURL  string
	Username string
	Token    string
	Project  string
	// IssueType is the type of issue created for each ticket
	IssueType string
	// DoneTransition is the workflow transition applied to closed tickets
	DoneTransition string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token      string
	Domain     string
	Repository string
	Labels     []string
}

var defaults = map[string]any{
	"sheet.timeout":             15 * time.Second,
	"sheet.poll_interval":       30 * time.Second,
	"sheet.max_retries":         3,
	"sheet.backoff":             500 * time.Millisecond,
	"sheet.max_backoff":         5 * time.Second,
	"parse.timezone":            "",
	"parse.keyed":               false,
	"server.listen_address":     ":9110",
	"server.read_timeout":       10 * time.Second,
	"server.write_timeout":      10 * time.Second,
	"store.path":                "guardian.db",
	"store.retain":              48,
	"report.not_comply_minutes": 36 * 60,
	"jira.issue_type":           "Task",
	"jira.done_transition":      "Done",
	"github.domain":             "github.com",
	"github.labels":             []string{"report"},
}

// LoadConfig reads the configuration. path may be empty, in which case only
// defaults and the environment are used.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit names used outside the GUARDIAN_ prefix
	_ = v.BindEnv("sheet.url", "GUARDIAN_SHEET_URL", "SHEET_URL", "VITE_SHEET_URL")
	_ = v.BindEnv("jira.url", "GUARDIAN_JIRA_URL", "JIRA_URL")
	_ = v.BindEnv("jira.username", "GUARDIAN_JIRA_USERNAME", "JIRA_USERNAME")
	_ = v.BindEnv("jira.token", "GUARDIAN_JIRA_TOKEN", "JIRA_TOKEN")
	_ = v.BindEnv("jira.project", "GUARDIAN_JIRA_PROJECT", "JIRA_PROJECT")
	_ = v.BindEnv("github.token", "GUARDIAN_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("github.domain", "GUARDIAN_GITHUB_DOMAIN", "GITHUB_DOMAIN")
	_ = v.BindEnv("github.repository", "GUARDIAN_GITHUB_REPOSITORY", "GITHUB_REPOSITORY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	config := &Config{
		Sheet: SheetConfig{
			URL:          strings.TrimSpace(v.GetString("sheet.url")),
			Timeout:      v.GetDuration("sheet.timeout"),
			PollInterval: v.GetDuration("sheet.poll_interval"),
			MaxRetries:   v.GetInt("sheet.max_retries"),
			Backoff:      v.GetDuration("sheet.backoff"),
			MaxBackoff:   v.GetDuration("sheet.max_backoff"),
		},
		Parse: ParseConfig{
			Timezone: v.GetString("parse.timezone"),
			Keyed:    v.GetBool("parse.keyed"),
		},
		Server: ServerConfig{
			ListenAddress: v.GetString("server.listen_address"),
			ReadTimeout:   v.GetDuration("server.read_timeout"),
			WriteTimeout:  v.GetDuration("server.write_timeout"),
		},
		Store: StoreConfig{
			Path:   v.GetString("store.path"),
			Retain: v.GetInt("store.retain"),
		},
		Report: ReportConfig{
			NotComplyMinutes: v.GetInt("report.not_comply_minutes"),
		},
		Jira: JiraConfig{
			BaseURL:        v.GetString("jira.url"),
			Username:       v.GetString("jira.username"),
			Token:          v.GetString("jira.token"),
			Project:        v.GetString("jira.project"),
			IssueType:      v.GetString("jira.issue_type"),
			DoneTransition: v.GetString("jira.done_transition"),
		},
		GitHub: GitHubConfig{
			Token:      v.GetString("github.token"),
			Domain:     v.GetString("github.domain"),
			Repository: v.GetString("github.repository"),
			Labels:     v.GetStringSlice("github.labels"),
		},
	}

	// An explicitly empty GITHUB_DOMAIN still means github.com
	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}

	if _, err := config.Location(); err != nil {
		return nil, err
	}
	return config, nil
}

// Location resolves Parse.Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Parse.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Parse.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid parse.timezone %q: %w", c.Parse.Timezone, err)
	}
	return loc, nil
}

// ValidateSheetConfig checks what fetching the sheet over HTTP needs.
func ValidateSheetConfig(config *Config) error {
	var missingVars []string

	if config.Sheet.URL == "" {
		missingVars = append(missingVars, "GUARDIAN_SHEET_URL")
	}
	if config.Sheet.PollInterval <= 0 {
		return fmt.Errorf("sheet.poll_interval must be positive, got %s", config.Sheet.PollInterval)
	}

	return missing(missingVars)
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	if config.Jira.BaseURL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}
	if config.Jira.Project == "" {
		missingVars = append(missingVars, "JIRA_PROJECT")
	}

	return missing(missingVars)
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}
	if config.GitHub.Repository == "" {
		missingVars = append(missingVars, "GITHUB_REPOSITORY")
	} else if owner, repo, ok := strings.Cut(config.GitHub.Repository, "/"); !ok || owner == "" || repo == "" {
		return fmt.Errorf("GITHUB_REPOSITORY must look like owner/name, got %q", config.GitHub.Repository)
	}

	return missing(missingVars)
}

func missing(vars []string) error {
	if len(vars) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(vars, ", "))
	}
	return nil
}
