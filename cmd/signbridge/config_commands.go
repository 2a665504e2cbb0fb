package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"signbridge/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the signbridge configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

// sampleTarget picks where `config init` writes: the --path value when set,
// otherwise the default per-user location.
func sampleTarget(flagValue string) (string, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		return config.ExpandPath(value)
	}
	return config.DefaultConfigPath()
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := sampleTarget(targetPath)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Point classifier.url and converter.url at your recognition service, then run `signbridge doctor`.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and print the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := resolved
			if !exists {
				source = resolved + " (not found, using defaults)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, effectiveSettings(cfg)))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func effectiveSettings(cfg *config.Config) [][]string {
	return [][]string{
		{"classifier.url", cfg.Classifier.URL},
		{"converter.url", cfg.Converter.URL},
		{"capture.device", cfg.Capture.Device},
		{"capture.confidence_threshold", strconv.FormatFloat(cfg.Capture.ConfidenceThreshold, 'f', 2, 64)},
		{"playback.player_command", cfg.Playback.PlayerCommand},
		{"dictation.command", cfg.Dictation.Command},
		{"catalog.clips_dir", cfg.Catalog.ClipsDir},
		{"catalog.api_bind", cfg.Catalog.APIBind},
		{"paths.state_dir", cfg.Paths.StateDir},
	}
}
