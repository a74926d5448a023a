package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/BrandonKowalski/hashnav/pkg/hashnav"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/config"
	"github.com/BrandonKowalski/hashnav/pkg/hashnav/router"
	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match HASH...",
		Short: "Resolve hashes against the routes of a configuration file",
		Example: `  hashnav match -c routes.toml /games/12 /settings/audio
  HASHNAV_CONFIG=routes.toml hashnav match /unknown`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := settings(cmd)
			if err != nil {
				return err
			}
			path := v.GetString("config")
			if path == "" {
				return errors.New("a configuration file is required (--config or HASHNAV_CONFIG)")
			}

			f, err := config.Load(path)
			if err != nil {
				return err
			}
			return match(cmd.OutOrStdout(), f, args)
		},
	}
}

// match prints the route and parameters each hash resolves to.
func match(out io.Writer, f config.File, hashes []string) error {
	r := router.New(router.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer r.Close()

	nop := router.Callback(func(context.Context, router.Params) {})
	if err := hashnav.Register(r, f, hashnav.Bindings{
		Handler: func(config.Route) (router.Handler, bool) { return nop, true },
		Provider: func(config.Route) (router.ProviderFunc, bool) {
			return func(context.Context, router.Page, router.Params) error { return nil }, true
		},
	}); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tROUTE\tPARAMS")
	for _, hash := range hashes {
		m, ok := r.Match(hash)
		if !ok {
			fmt.Fprintf(w, "%s\t-\t-\n", hash)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", hash, m.Route, formatParams(m.Params))
	}
	return w.Flush()
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	return strings.Join(pairs, " ")
}
