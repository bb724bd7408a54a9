package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dixieflatline76/PexWall/pkg/repository"
	"github.com/dixieflatline76/PexWall/pkg/setter"
	"github.com/dixieflatline76/PexWall/pkg/store"
	"github.com/dixieflatline76/PexWall/pkg/viewmodel"
	"github.com/spf13/cobra"
)

func printWallpapers(out io.Writer, ws []store.Wallpaper) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFAV\tSIZE\tPHOTOGRAPHER\tURL")
	for _, w := range ws {
		fav := ""
		if w.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%dx%d\t%s\t%s\n", w.ID, fav, w.Width, w.Height, w.Photographer, w.URL)
	}
	tw.Flush()
}

func printPage(out io.Writer, p *repository.Page) {
	printWallpapers(out, p.Items)
	footer := fmt.Sprintf("page %d", p.Page)
	if p.HasNext {
		footer += ", more available"
	}
	if p.Stale {
		footer += " (offline, showing saved results)"
	}
	fmt.Fprintln(out, footer)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid wallpaper id %q", s)
	}
	return id, nil
}

func newCuratedCmd(opts *rootOptions) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "curated",
		Short: "List curated wallpapers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				p, err := a.repo.Curated(ctx, page)
				if err != nil {
					return err
				}
				printPage(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var page int
	var refresh bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search wallpapers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				vm := viewmodel.NewSearchViewModel(a.repo)
				vm.OnSearchQuerySubmit(strings.Join(args, " "))

				var p *repository.Page
				var err error
				if refresh {
					p, err = vm.Refresh(ctx)
				} else {
					p, err = vm.Results(ctx, page)
				}
				if err != nil {
					return err
				}
				printPage(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop cached results and fetch page 1 again")
	return cmd
}

func newSuggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "Print search suggestions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			vm := viewmodel.NewSearchViewModel(nil)
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(vm.Suggestions(), ", "))
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a wallpaper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				vm := viewmodel.NewPreviewViewModel(a.repo, a.setter)
				w, err := vm.Wallpaper(ctx, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:           %d\n", w.ID)
				fmt.Fprintf(out, "Size:         %dx%d\n", w.Width, w.Height)
				fmt.Fprintf(out, "Photographer: %s (%s)\n", w.Photographer, w.PhotographerURL)
				fmt.Fprintf(out, "Avg color:    %s\n", w.AvgColor)
				fmt.Fprintf(out, "Favorite:     %t\n", w.IsFavorite)
				fmt.Fprintf(out, "Image:        %s\n", viewmodel.ApplyURL(w))
				if share, err := vm.Share(ctx, id); err == nil {
					fmt.Fprintf(out, "Share:        %s\n", share)
				}
				return nil
			})
		},
	}
}

func newFavoriteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle the favorite flag of a wallpaper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				vm := viewmodel.NewPreviewViewModel(a.repo, a.setter)
				w, err := vm.Wallpaper(ctx, id)
				if err != nil {
					return err
				}
				if err := vm.OnFavoriteClick(ctx, w); err != nil {
					return err
				}
				if w.IsFavorite {
					fmt.Fprintf(cmd.OutOrStdout(), "Wallpaper %d added to favorites\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Wallpaper %d removed from favorites\n", id)
				}
				return nil
			})
		},
	}
}

func newFavoritesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List favorite wallpapers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, appHooks{}, func(ctx context.Context, a *app) error {
				favs, err := a.repo.Favorites(ctx)
				if err != nil {
					return err
				}
				printWallpapers(cmd.OutOrStdout(), favs)
				return nil
			})
		},
	}
}

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var home, lock bool
	cmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "Set a wallpaper on the home screen, the lock screen or both",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			// Home screen when no target was named
			if !cmd.Flags().Changed("home") && !cmd.Flags().Changed("lock") {
				home = true
			}
			out := cmd.OutOrStdout()
			hooks := appHooks{notifier: setter.NotifierFunc(func(msg string) {
				fmt.Fprintln(out, msg)
			})}
			return withApp(opts, hooks, func(ctx context.Context, a *app) error {
				vm := viewmodel.NewPreviewViewModel(a.repo, a.setter)
				res, err := vm.Apply(ctx, id, home, lock)
				// Home screen still applied when only the lock screen failed
				if err != nil && (res == nil || !errors.Is(err, setter.ErrLockScreenUnsupported)) {
					return err
				}
				fmt.Fprintf(out, "Saved to %s\n", res.Path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&home, "home", false, "set the home screen")
	cmd.Flags().BoolVar(&lock, "lock", false, "set the lock screen")
	return cmd
}
