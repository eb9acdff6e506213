package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"studio/internal/bootstrap"
	"studio/internal/infra"
)

// session holds what every subcommand shares once the root has run.
type session struct {
	runtime *bootstrap.Runtime
	pretty  bool
}

func (s *session) print(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if s.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	s := &session{}
	root := &cobra.Command{
		Use:   "studioctl",
		Short: "Operate the product photo pipeline from the shell",
		Long: strings.TrimSpace(`
Runs pipeline stages against the local storage directory using the same
configuration as the API server. Results are printed to stdout as JSON.
    `),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			if dir, _ := cmd.Flags().GetString("storage"); dir != "" {
				if err := os.Setenv("STORAGE_PATH", dir); err != nil {
					return err
				}
			}
			cfg, err := infra.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := infra.NewLoggerTo(cmd.ErrOrStderr(), cfg.AppEnv)
			rt, err := bootstrap.New(cmd.Context(), cfg, &logger)
			if err != nil {
				return err
			}
			s.runtime = rt
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if s.runtime == nil {
				return nil
			}
			return s.runtime.Close()
		},
	}
	root.PersistentFlags().StringP("storage", "s", "", "Storage directory (overrides STORAGE_PATH)")
	root.PersistentFlags().BoolVar(&s.pretty, "pretty", false, "Indent JSON output")

	root.AddCommand(
		newNormalizeCmd(s),
		newValidateCmd(s),
		newRemoveBackgroundCmd(s),
		newCatalogCmd(s),
		newStatusCmd(s),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
