package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"meme-service/config"
	"meme-service/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "meme-service",
	Short: "AI meme generation and template API",
	Long: `meme-service serves the meme generation, template browsing, library and
media APIs behind the meme mini-program.

Configuration is read from MEME_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.New()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		logger.SetLevel(cfg.LogLevel)
		log = logger.New("meme-service")
		return nil
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, seedCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
