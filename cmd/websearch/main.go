package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// errReported marks failures whose message was already written to the user.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "websearch: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "websearch",
		Short:         "Querit web search tool for LLM agents",
		Long:          "websearch runs the web_search tool against the Querit search API, either once from the command line or as an MCP server on stdio.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(),
		"path to the YAML config file (env WEBSEARCH_CONFIG)")

	root.AddCommand(
		newSearchCmd(&cfgPath),
		newServeCmd(&cfgPath),
		newDoctorCmd(&cfgPath),
	)
	return root
}

func defaultConfigPath() string {
	if p := os.Getenv("WEBSEARCH_CONFIG"); p != "" {
		return p
	}
	return "websearch.yaml"
}
