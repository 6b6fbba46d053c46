// Package config resolves taskpilot configuration from the environment and
// from an optional per-project .taskpilot.yaml file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// LocalFileName is the per-project configuration file, looked up in the
// project root.
const LocalFileName = ".taskpilot.yaml"

// UserFileName is the user-level configuration file under the taskpilot home
// directory. Project files override it field by field.
const UserFileName = "config.yaml"

// Config is the environment-driven configuration.
type Config struct {
	APIBaseURL  string `env:"TASKPILOT_API_URL, default=https://api.taskpilot.dev"`
	APIKey      string `env:"TASKPILOT_API_KEY"`
	WorkspaceID string `env:"TASKPILOT_WORKSPACE"`
	Username    string `env:"TASKPILOT_USERNAME"`

	// ProceedOnDeclinedAutofix controls whether a declined autofix offer still
	// opens the pull request.
	ProceedOnDeclinedAutofix bool `env:"TASKPILOT_PROCEED_ON_DECLINED_AUTOFIX, default=true"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// LocalConfig is the per-project .taskpilot.yaml. Every field is optional;
// set fields override the environment configuration for that project.
type LocalConfig struct {
	WorkspaceID string `yaml:"workspace_id"`
	Username    string `yaml:"username"`
	BaseBranch  string `yaml:"base_branch"`

	// TestCommands maps a test type (unit, integration, e2e) to the command
	// line to run it, overriding detection.
	TestCommands map[string]string `yaml:"test_commands"`

	ProceedOnDeclinedAutofix *bool `yaml:"proceed_on_declined_autofix"`
}

// LoadLocal reads the project's .taskpilot.yaml from dir. A missing file is
// not an error and yields an empty LocalConfig.
func LoadLocal(dir string) (*LocalConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, LocalFileName))
	if errors.Is(err, os.ErrNotExist) {
		return &LocalConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", LocalFileName, err)
	}
	var local LocalConfig
	if err := yaml.Unmarshal(data, &local); err != nil {
		return nil, fmt.Errorf("parse %s: %w", LocalFileName, err)
	}
	return &local, nil
}

// LoadUser reads the user-level config.yaml from the taskpilot home
// directory. A missing file is not an error and yields an empty LocalConfig.
func LoadUser(home string) (*LocalConfig, error) {
	data, err := os.ReadFile(filepath.Join(home, UserFileName))
	if errors.Is(err, os.ErrNotExist) {
		return &LocalConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", UserFileName, err)
	}
	var user LocalConfig
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse %s: %w", UserFileName, err)
	}
	return &user, nil
}

// Overlay returns the receiver with project's set fields applied on top.
// TestCommands merge per key. Neither argument is modified.
func (l *LocalConfig) Overlay(project *LocalConfig) *LocalConfig {
	out := *l
	if project == nil {
		return &out
	}
	if project.WorkspaceID != "" {
		out.WorkspaceID = project.WorkspaceID
	}
	if project.Username != "" {
		out.Username = project.Username
	}
	if project.BaseBranch != "" {
		out.BaseBranch = project.BaseBranch
	}
	if project.ProceedOnDeclinedAutofix != nil {
		out.ProceedOnDeclinedAutofix = project.ProceedOnDeclinedAutofix
	}
	if len(project.TestCommands) > 0 {
		merged := make(map[string]string, len(l.TestCommands)+len(project.TestCommands))
		for k, v := range l.TestCommands {
			merged[k] = v
		}
		for k, v := range project.TestCommands {
			merged[k] = v
		}
		out.TestCommands = merged
	}
	return &out
}

// Merge applies the local overrides on top of the environment configuration
// and returns the effective config. The receiver is not modified.
func (c *Config) Merge(local *LocalConfig) *Config {
	out := *c
	if local == nil {
		return &out
	}
	if local.WorkspaceID != "" {
		out.WorkspaceID = local.WorkspaceID
	}
	if local.Username != "" {
		out.Username = local.Username
	}
	if local.ProceedOnDeclinedAutofix != nil {
		out.ProceedOnDeclinedAutofix = *local.ProceedOnDeclinedAutofix
	}
	return &out
}
