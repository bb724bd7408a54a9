package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dixieflatline76/PexWall/config"
	"github.com/dixieflatline76/PexWall/util"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", config.AppName, version())
			if !check {
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			res, err := util.CheckForUpdates(ctx, nil)
			if err != nil {
				return err
			}
			if res.UpdateAvailable {
				fmt.Fprintf(out, "Update available: %s\n%s\n", res.LatestVersion, res.ReleaseURL)
			} else {
				fmt.Fprintln(out, "You are running the latest version")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}
