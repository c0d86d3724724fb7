package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AlesonDEV/Api.FreeCity.Services/internal/app/bootstrap"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "gtfsctl",
		Short:        "Operate the FreeCity GTFS database",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "configs/default.yaml", "Path to the YAML config file")

	cmd.AddCommand(migrateCmd(&configPath))
	cmd.AddCommand(importCmd(&configPath))
	cmd.AddCommand(statusCmd(&configPath))
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations (never runs down migrations)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			version, err := bootstrap.Migrate(cmd.Context(), cfg, bootstrap.NewLogger(cfg))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return err
		},
	}
}

func importCmd(configPath *string) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "import",
		Short: "Download the GTFS feed and replace the stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd.Context(), *configPath, func(ctx context.Context, core *bootstrap.Core) error {
				result, err := core.Service.RunImport(ctx, force)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	c.Flags().BoolVar(&force, "force", false, "Import even when the feed checksum is unchanged")
	return c
}

func statusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print feed freshness and table counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd.Context(), *configPath, func(ctx context.Context, core *bootstrap.Core) error {
				status, err := core.Service.Status(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), status)
			})
		},
	}
}

func withCore(ctx context.Context, configPath string, fn func(context.Context, *bootstrap.Core) error) error {
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return err
	}
	core, err := bootstrap.NewCore(ctx, cfg, bootstrap.NewLogger(cfg))
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
