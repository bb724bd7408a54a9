package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dixieflatline76/PexWall/pkg/work"
	"github.com/spf13/cobra"
)

func newAutoCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Manage automatic wallpaper changes through favorites",
	}
	cmd.AddCommand(newAutoStartCmd(opts), newAutoStopCmd(opts), newAutoStatusCmd(opts))
	return cmd
}

func newAutoStartCmd(opts *rootOptions) *cobra.Command {
	var unit string
	var value float64
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Schedule changes through the favorites every interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := work.ParseTimeUnit(unit)
			if err != nil {
				return err
			}
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				if err := a.loadSchedule(ctx); err != nil {
					return err
				}
				favs, err := a.repo.Favorites(ctx)
				if err != nil {
					return err
				}
				scheduled, err := a.tools.SetupAutoChangeWallpaperWorks(ctx, favs, u, value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %d wallpaper changes; 'pexwall serve' runs them\n", len(scheduled))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&unit, "unit", string(work.Hours), "interval unit: minutes, hours or days")
	cmd.Flags().Float64Var(&value, "value", 1, "interval length, at least 1")
	return cmd
}

func newAutoStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Cancel scheduled wallpaper changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				if err := a.loadSchedule(ctx); err != nil {
					return err
				}
				n := a.tools.CancelWorks(ctx, work.WorkAutoWallpaper)
				fmt.Fprintf(cmd.OutOrStdout(), "Cancelled %d wallpaper changes\n", n)
				return nil
			})
		},
	}
}

func newAutoStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List scheduled wallpaper changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				if err := a.loadSchedule(ctx); err != nil {
					return err
				}
				scheduled := a.tools.Scheduled()
				out := cmd.OutOrStdout()
				if len(scheduled) == 0 {
					fmt.Fprintln(out, "No wallpaper changes scheduled")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN AT\tWALLPAPER\tATTEMPTS\tNAME")
				for _, r := range scheduled {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
						r.RunAt.Local().Format(time.DateTime), r.Input[work.InputWallpaperID], r.Attempts, r.Name)
				}
				return tw.Flush()
			})
		},
	}
}
