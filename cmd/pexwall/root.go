package main

import (
	"github.com/dixieflatline76/PexWall/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pexwall",
		Short:         "Browse Pexels wallpapers, keep favorites and rotate them on the desktop",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (default ~/.pexwall/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log database statements and HTTP requests")

	root.AddCommand(
		newServeCmd(opts),
		newCuratedCmd(opts),
		newSearchCmd(opts),
		newSuggestionsCmd(),
		newShowCmd(opts),
		newFavoriteCmd(opts),
		newFavoritesCmd(opts),
		newApplyCmd(opts),
		newAutoCmd(opts),
		newKeyCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configFile)
}
