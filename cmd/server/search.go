package main

import (
	"strings"

	"github.com/spf13/cobra"

	"phoneadvisor/internal/app"
	"phoneadvisor/internal/model"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank the catalog for a query without calling any model",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	a, err := app.New(cmd.Context(), cfg, log, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Search.Search(cmd.Context(), &model.SearchRequest{
		Query: strings.Join(args, " "),
		Limit: searchLimit,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, resp)
}
