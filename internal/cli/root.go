// Package cli implements the didresolve command line.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	didresolver "github.com/pilacorp/go-did-resolver"
	"github.com/pilacorp/go-did-resolver/config"
	"github.com/pilacorp/go-did-resolver/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "didresolve",
	Short:         "Resolve and dereference DIDs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./didresolver.yaml)")
	rootCmd.AddCommand(resolveCmd, dereferenceCmd, verifyCmd, thumbprintCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("didresolve failed", "error", err)
		os.Exit(1)
	}
}

func newResolver() (*didresolver.Resolver, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return didresolver.NewFromConfig(cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
