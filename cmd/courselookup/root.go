package main

import (
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/oarkflow/courselookup"
	"github.com/oarkflow/courselookup/config"
)

var (
	cfgFile string
	appCfg  *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "courselookup",
	Short: "Course search index and review API gateway.",
	Long: heredoc.Doc(`
		courselookup serves prefix search over courses and instructors and
		relays /api/* calls to the review backend, unwrapping its
		{status, payload, errors} envelope.

		Settings are read from defaults, the optional --config file,
		COURSELOOKUP_* environment variables and flags, in that order.
	`),
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().String("dataset", "embedded", "dataset source: embedded, a path, file://, sql, s3://bucket/key or minio://endpoint/bucket/key")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().Bool("forward-prefixes", false, "index every token prefix instead of walking a trie")

	rootCmd.AddCommand(serveCmd, searchCmd, versionCmd)
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := config.New()
	if err := config.BindFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	appCfg = cfg
	return nil
}

func newLogger() *courselookup.Logger {
	return courselookup.NewLoggerFor(os.Stderr, appCfg.Log.Format, appCfg.Log.Level)
}

// newStore opens the configured dataset behind an IndexStore.
func newStore(logger *courselookup.Logger, opts ...courselookup.StoreOption) (*courselookup.IndexStore, error) {
	loader, err := openDataset(logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, courselookup.WithLogger(logger))
	if appCfg.Search.ForwardPrefixes {
		opts = append(opts, courselookup.WithIndexOptions(courselookup.WithForwardPrefixes()))
	}
	return courselookup.NewIndexStore(loader, opts...), nil
}
