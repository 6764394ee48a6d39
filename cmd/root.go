package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/withobsrvr/ttp-consumer/internal/config"
	"github.com/withobsrvr/ttp-consumer/internal/utils/logger"
)

var (
	cfgFile       string
	serverAddr    string
	transportName string
	output        string
	logLevel      string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ttp-consumer",
	Short: "Stream token transfer events from an Obsrvr event service",
	Long: `ttp-consumer streams SEP-41 token transfer events for a ledger range
from a remote event service, optionally filtered to a set of accounts.
It speaks native gRPC or grpc-web and can resume interrupted streams
from a local cursor store.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", zap.Error(err))
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ttp-consumer/ttp-consumer.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "", "event service address (host:port or URL)")
	rootCmd.PersistentFlags().StringVar(&transportName, "transport", "", "wire transport (grpc|grpc-web)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format (text|json|yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	// Bind flags to viper
	viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("transport", rootCmd.PersistentFlags().Lookup("transport"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(home + "/.config/ttp-consumer")
		viper.SetConfigType("yaml")
		viper.SetConfigName("ttp-consumer")
	}

	viper.SetEnvPrefix("TTP")
	viper.AutomaticEnv() // read in environment variables that match

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Initialize the logger
	if err := logger.Init(viper.GetString("log_level")); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(1)
	}
}

// loadConfig assembles the client configuration from defaults, the config
// file and flag/env overrides
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
