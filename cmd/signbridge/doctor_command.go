package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"signbridge/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check devices, binaries, directories, and endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := preflight.RunAll(cmd.Context(), ctx.configValue())
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, doctorKind(r), r.Detail, colorize))
			}
			if preflight.AnyFailed(results) {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}
}

func doctorKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}
