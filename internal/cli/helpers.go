package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ankittk/taskpilot/internal/config"
	"github.com/ankittk/taskpilot/pkg/client"
)

// loadConfig resolves the effective configuration for a project directory:
// environment, then the user-level config.yaml under the taskpilot home, then
// the project's .taskpilot.yaml.
func loadConfig(ctx context.Context, dir string) (*config.Config, *config.LocalConfig, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	layered := &config.LocalConfig{}
	if home, ok := config.HomeFrom(ctx); ok {
		if layered, err = config.LoadUser(home); err != nil {
			return nil, nil, err
		}
	}
	project, err := config.LoadLocal(dir)
	if err != nil {
		return nil, nil, err
	}
	local := layered.Overlay(project)
	return cfg.Merge(local), local, nil
}

func newClient(cfg *config.Config) (*client.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("TASKPILOT_API_KEY is not set")
	}
	return client.New(cfg.APIBaseURL, cfg.APIKey), nil
}

func requireWorkspace(cfg *config.Config, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.WorkspaceID != "" {
		return cfg.WorkspaceID, nil
	}
	return "", fmt.Errorf("no workspace configured: set TASKPILOT_WORKSPACE, %s, or --workspace", config.LocalFileName)
}

func printKV(cmd *cobra.Command, key, value string) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", key+":", value)
}
