// Package cmd wires up the scrapeline CLI.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/scrapeline/scrapeline/internal/config"
	"github.com/scrapeline/scrapeline/internal/observability"
)

const appName = "scrapeline"

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Rate-limited API scraping agent",
	Long: `scrapeline runs YAML-defined API scraping jobs with rate limiting,
retries and record transformation.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "application config file (default ./scrapeline.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Initialize CLI logger early so we can use it in config loading
	observability.InitCLILogger(appName, verbose)

	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigName(appName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			observability.CLILogger.Debug("Using config file", zap.String("path", viper.ConfigFileUsed()))
		}
	} else {
		// It's OK if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			observability.CLILogger.Warn("Error reading config file", zap.Error(err))
		} else if verbose {
			observability.CLILogger.Debug("No config file found, using defaults and environment variables")
		}
	}

	// Set defaults
	setDefaults()

	// Honor configured log level unless --verbose already forced debug
	if !verbose {
		observability.SetLevel(appName, viper.GetString("logging.level"))
	}
}

// setDefaults sets default configuration values
func setDefaults() {
	// Job definition and output locations
	viper.SetDefault("config_dir", "./config")
	viper.SetDefault("output_dir", "./output")

	// Logging defaults
	viper.SetDefault("logging.level", "info")

	// Store defaults
	viper.SetDefault("store.driver", "libsql")
	viper.SetDefault("store.path", config.DefaultStorePath())
	viper.SetDefault("store.url", "")
	viper.SetDefault("store.auth_token", "")

	// HTTP client defaults
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.user_agent", appName+"/"+versionOrDev())
}

func versionOrDev() string {
	if versionInfo.Version == "" {
		return "dev"
	}
	return versionInfo.Version
}

// loadAppConfig resolves the typed application config from viper state.
func loadAppConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}
