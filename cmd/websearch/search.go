package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"querit-websearch/internal/adapter/tool"
	"querit-websearch/internal/infra/config"
)

func newSearchCmd(cfgPath *string) *cobra.Command {
	var numResults int
	var async bool

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Run one web search and print the formatted results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cmd.Flags().Changed("num-results") {
				cfg.Search.NumResults = numResults
				if err := config.Validate(cfg); err != nil {
					return fmt.Errorf("--num-results: %w", err)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := newRuntime(ctx, cfg, false, nil)
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			query := strings.Join(args, " ")
			if async {
				fmt.Fprintln(cmd.OutOrStdout(), <-rt.search.InvokeAsync(ctx, query))
				return nil
			}
			return runSearch(ctx, rt.registry, query, cmd)
		},
	}
	cmd.Flags().IntVarP(&numResults, "num-results", "n", tool.DefaultNumResults,
		fmt.Sprintf("number of results to return (%d-%d)", tool.MinNumResults, tool.MaxNumResults))
	cmd.Flags().BoolVar(&async, "async", false, "run the search on a background goroutine")
	return cmd
}

// runSearch executes web_search through the registry so params get the same
// schema validation an agent host would apply.
func runSearch(ctx context.Context, registry *tool.Registry, query string, cmd *cobra.Command) error {
	t, err := registry.Get("web_search")
	if err != nil {
		return err
	}
	params, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return err
	}

	result, err := t.Execute(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Content)
	if result.IsError {
		return errReported
	}
	return nil
}
