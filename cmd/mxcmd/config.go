// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mxcmd/internal/config"
	"mxcmd/internal/issue"
)

// newConfigCommand creates the `mxcmd config` command tree.
// Subcommands that read configuration use the App's ConfigProvider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mxcmd configuration",
		Long: `Manage mxcmd configuration.

Configuration is stored in:
  - Linux: ~/.config/mxcmd/config.cue
  - macOS: ~/Library/Application Support/mxcmd/config.cue
  - Windows: %APPDATA%\mxcmd\config.cue`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: app.flags.configPath})
			if err != nil {
				return configLoadError(err, app.flags.configPath)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, path, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: app.flags.configPath})
	if err != nil {
		return configLoadError(err, app.flags.configPath)
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	none := SubtitleStyle.Render("(none configured)")
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("prompt"), valueStyle.Render(fmt.Sprintf("%q", cfg.Prompt)))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("log_level"), valueStyle.Render(cfg.LogLevel.String()))
	fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("dump_file"), valueStyle.Render(cfg.DumpFile))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("startup"))
	if len(cfg.Startup) == 0 {
		fmt.Fprintf(w, "  %s\n", none)
	}
	for _, s := range cfg.Startup {
		fmt.Fprintf(w, "  - %s\n", valueStyle.Render(s))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("externs"))
	if len(cfg.Externs) == 0 {
		fmt.Fprintf(w, "  %s\n", none)
	}
	for _, e := range cfg.Externs {
		fmt.Fprintf(w, "  - %s (%s from %s)\n", valueStyle.Render(string(e.Name)), e.Symbol, e.Library)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("variables"))
	if len(cfg.Variables) == 0 {
		fmt.Fprintf(w, "  %s\n", none)
	}
	for _, v := range cfg.Variables {
		fmt.Fprintf(w, "  %s = %s\n", v.Name, valueStyle.Render(v.Value))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("console"))
	fmt.Fprintf(w, "  host: %s\n", valueStyle.Render(cfg.Console.Host))
	fmt.Fprintf(w, "  port: %s\n", valueStyle.Render(cfg.Console.Port.String()))
	if cfg.Console.HostKeyPath != "" {
		fmt.Fprintf(w, "  host_key_path: %s\n", valueStyle.Render(cfg.Console.HostKeyPath))
	}
	if cfg.Console.Token != "" {
		fmt.Fprintf(w, "  token: %s\n", valueStyle.Render("(set)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("watch"))
	fmt.Fprintf(w, "  debounce: %s\n", valueStyle.Render(cfg.Watch.Debounce.String()))
	for _, p := range cfg.Watch.Ignore {
		fmt.Fprintf(w, "  ignore: %s\n", valueStyle.Render(p))
	}
	return nil
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}

func configLoadError(err error, path string) error {
	return issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource(path).
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(err).
		BuildError()
}
