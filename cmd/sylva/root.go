package main

import (
	"fmt"
	"os"

	"github.com/harunnryd/sylva/internal/config"
	"github.com/harunnryd/sylva/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sylva",
	Short: "Sylva naturalist assistant",
	Long:  `Sylva answers naturalist questions by calling GeoNature tools through a completion backend.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.sylva/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("server.port", config.DefaultServerPort, "server port")
	rootCmd.PersistentFlags().String("llm.provider", config.DefaultLLMProvider, "completion backend (openai, ollama, anthropic, gemini)")
	rootCmd.PersistentFlags().String("tools.transport", config.DefaultToolsTransport, "tool backend transport (mcp, http)")
}
