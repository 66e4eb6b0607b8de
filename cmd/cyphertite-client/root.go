package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kenneth/cyphertite-go/internal/debug"
)

var (
	configPath string
	log        = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "cyphertite-client",
	Short: "Content-addressed, encrypted backup client",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (YAML/JSON/TOML, viper-loaded)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(cullCmd)
	rootCmd.AddCommand(serveCmd)
}

func initLogging() error {
	level := viper.GetString("log_level")
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	debug.InitFromLogLevel(level)
	return nil
}
