package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ankittk/taskpilot/pkg/models"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage workspace profiles",
	}
	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileCreateCmd())
	cmd.AddCommand(newProfileDeleteCmd())
	return cmd
}

func newProfileListCmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, ".")
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			ws, err := requireWorkspace(cfg, workspace)
			if err != nil {
				return err
			}
			profiles, err := c.ListProfiles(ctx, ws)
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No profiles found.")
				return nil
			}
			for _, p := range profiles {
				marker := " "
				if p.IsDefault {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-12s %-24s %s\n", marker, p.Type, p.Name, p.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID (overrides configuration)")
	return cmd
}

func newProfileCreateCmd() *cobra.Command {
	var workspace string
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a profile from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, ".")
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			ws, err := requireWorkspace(cfg, workspace)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var p models.Profile
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			if p.Type != models.ProfileTypeCodeStyle && p.Type != models.ProfileTypeCodeReview {
				return fmt.Errorf("profile type must be %q or %q", models.ProfileTypeCodeStyle, models.ProfileTypeCodeReview)
			}
			p.WorkspaceID = ws

			created, err := c.CreateProfile(ctx, &p)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s (%s)\n", created.Name, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID (overrides configuration)")
	cmd.Flags().StringVar(&file, "file", "", "Path to the profile JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, _, err := loadConfig(ctx, ".")
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			if err := c.DeleteProfile(ctx, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
			return nil
		},
	}
	return cmd
}
