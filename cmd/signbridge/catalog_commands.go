package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"signbridge/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and rebuild the sign clip index",
	}
	catalogCmd.AddCommand(newCatalogScanCommand(ctx))
	catalogCmd.AddCommand(newCatalogLookupCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	return catalogCmd
}

func newCatalogScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "Rebuild the index from a clips directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			dir := cfg.Catalog.ClipsDir
			if len(args) == 1 {
				dir = strings.TrimSpace(args[0])
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Scan(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Directory", "Clips", "Skipped"},
				[][]string{{res.Dir, fmt.Sprint(res.Clips), fmt.Sprint(res.Skipped)}},
				1, 2,
			))
			return nil
		},
	}
}

func newCatalogLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <text...>",
		Short: "Show the clip sequence text resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			store, err := catalog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			matches, err := catalog.NewResolver(store, cfg.Catalog.URLPrefix).Resolve(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(matches) == 0 {
				fmt.Fprintln(out, "No matching sign videos found.")
				return nil
			}
			rows := make([][]string, 0, len(matches))
			for i, m := range matches {
				rows = append(rows, []string{fmt.Sprint(i + 1), m.Word, m.Path})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Sign", "Clip"}, rows, 0))
			return nil
		},
	}
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := catalog.Open(ctx.configValue())
			if err != nil {
				return err
			}
			defer store.Close()

			clips, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(clips) == 0 {
				fmt.Fprintln(out, "Catalog is empty; run 'signbridge catalog scan'.")
				return nil
			}
			rows := make([][]string, 0, len(clips))
			for _, c := range clips {
				rows = append(rows, []string{c.Word, c.Filename, fmt.Sprint(c.Size), c.ModTime.Format("2006-01-02 15:04")})
			}
			fmt.Fprintln(out, renderTable([]string{"Word", "File", "Bytes", "Modified"}, rows, 2))
			return nil
		},
	}
}
