package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/pipeline"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "account-plan",
	Short: "Account plan agent - elicit, verify and synthesize account knowledge",
	Long: `Account plan agent gathers knowledge about business accounts through
guided question-and-answer sessions, collects external evidence about
the company, detects when new answers contradict what was recorded
before, and synthesizes everything into versioned strategic account
plans with a change log.

Typical workflow:
  account-plan account add "Acme Corp" --industry manufacturing
  account-plan questions init
  account-plan collect "Acme Corp"
  account-plan ask "Acme Corp"
  account-plan plan "Acme Corp"`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("account-plan v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.account-plan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.account-plan")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match ACCOUNT_PLAN_*
	viper.SetEnvPrefix("ACCOUNT_PLAN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig layers the config file and environment over defaults.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Verbose mode switches to
// human-readable development output at debug level.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// openPipeline builds the pipeline from the effective configuration.
// The caller owns the returned pipeline and must Close it.
func openPipeline() (*pipeline.Pipeline, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, logger)
}

// resolveAccount accepts either a numeric id or a company name.
func resolveAccount(p *pipeline.Pipeline, ref string) (*model.Account, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return p.Store().GetAccount(id)
	}
	return p.Store().GetAccountByName(ref)
}
