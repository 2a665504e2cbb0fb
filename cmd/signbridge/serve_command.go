package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signbridge/internal/catalog"
	"signbridge/internal/overlay"
	"signbridge/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the clip catalog conversion API and overlay feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.log()

			store, err := catalog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			hub := overlay.NewHub(overlay.WithLogger(logger))
			defer hub.Close()

			srv, err := server.New(cfg, store, server.WithLogger(logger), server.WithOverlay(hub))
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			defer srv.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s (Ctrl-C to stop)\n", cfg.Catalog.ClipsDir, srv.Addr())
			<-runCtx.Done()
			return nil
		},
	}
}
