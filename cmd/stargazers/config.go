package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stargazers/pkg/auth"
	"stargazers/pkg/config"
	apperrors "stargazers/pkg/errors"
	"stargazers/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage stargazers configuration files.

Configuration is read from, highest priority first:
  - Command line flags
  - Environment variables (GITHUB_*, BATCH_SIZE, STARGAZERS_*)
  - .env files
  - Configuration file (YAML or TOML)
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with every option.

The file is written to .stargazers.yaml unless --config names another path.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging every source. The token is masked.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
}

const exampleConfig = `# stargazers configuration
#
# Environment variables override this file:
#   GITHUB_OWNER, GITHUB_REPO, GITHUB_PERSONAL_ACCESS_TOKEN, BATCH_SIZE,
#   STARGAZERS_STORAGE_BACKEND, STARGAZERS_OUTPUT_DIR, STARGAZERS_LOG_LEVEL, ...

github:
  owner: ""
  repo: ""
  # Leave empty and use 'stargazers auth login' or the environment instead
  token: ""
  base_url: "https://api.github.com"
  user_agent: "stargazers"
  request_timeout: 30s
  # 0 disables client side pacing
  requests_per_minute: 0

enrich:
  # 0 picks 100 with a token and 5 without
  batch_size: 0

storage:
  # file, sqlite or redis
  backend: "file"
  output_dir: "."
  cache_dir: ".cache"
  sqlite_path: "stargazers.db"
  redis_addr: "127.0.0.1:6379"
  redis_prefix: "stargazers"

report:
  top_n: 10

logging:
  # debug, info, warn, error
  level: "info"
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".stargazers.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return apperrors.Configuration("configuration file %s already exists", path)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.PrintInfo("Next", "set github.owner and github.repo, then run 'stargazers config validate'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return err
	}

	display := *cfg
	if display.GitHub.Token != "" {
		display.GitHub.Token = auth.Mask(display.GitHub.Token)
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return err
	}

	if _, err := cfg.RepoID(); err != nil {
		ui.PrintWarning("Repository not configured, it will be prompted for", err)
	}
	if !cfg.Authenticated() {
		ui.PrintWarning("No token configured, enrichment uses batches of 5")
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Storage", cfg.Storage.Backend)
	ui.PrintInfo("Batch size", fmt.Sprint(cfg.EffectiveBatchSize()))
	ui.PrintInfo("Request timeout", cfg.GitHub.RequestTimeout.String())
	ui.PrintInfo("Log level", cfg.Logging.Level)
	return nil
}
