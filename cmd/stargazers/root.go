package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"stargazers/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile string
	logLevel   string
	quiet      bool
	verbose    bool
	noPrompt   bool

	ownerFlag   string
	repoFlag    string
	tokenFlag   string
	batchSize   int
	storageFlag string
	outputFlag  string
	topFlag     int
)

var rootCmd = &cobra.Command{
	Use:   "stargazers",
	Short: "Rank a GitHub repository's stargazers by follower count",
	Long: `stargazers collects every user who starred a GitHub repository, fetches
their public profiles and ranks them by follower count.

Each stage keeps its own checkpoint, so an interrupted or rate limited run
picks up where it stopped:
  1. crawl   list stargazers page by page
  2. enrich  fetch user profiles in concurrent batches
  3. report  rank users by followers

Without a subcommand all three stages run.`,
	Example: `  # Prompt for the repository and run every stage
  stargazers

  # Non-interactive run with a token from the environment
  GITHUB_PERSONAL_ACCESS_TOKEN=ghp_... stargazers --owner golang --repo go --no-prompt`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuiet(true)
		}
		if cmd.Name() == "stargazers" || cmd.Name() == "run" {
			ui.PrintLogo()
		}
	},
	RunE: runPipeline,
}

// Execute runs the root command and exits 1 on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError("Error", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default is .stargazers.yaml or ~/.config/stargazers/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only print errors and the final report")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&noPrompt, "no-prompt", false, "never prompt for missing values")

	pf.StringVar(&ownerFlag, "owner", "", "repository owner (env GITHUB_OWNER)")
	pf.StringVar(&repoFlag, "repo", "", "repository name (env GITHUB_REPO)")
	pf.StringVar(&tokenFlag, "token", "", "personal access token (env GITHUB_PERSONAL_ACCESS_TOKEN)")
	pf.IntVar(&batchSize, "batch-size", 0, "profiles fetched per batch (env BATCH_SIZE)")
	pf.StringVar(&storageFlag, "storage", "", "storage backend: file, sqlite or redis")
	pf.StringVarP(&outputFlag, "output", "o", "", "output directory for the file backend")
	pf.IntVar(&topFlag, "top", 0, "number of ranked users to print")

	rootCmd.SetVersionTemplate(`stargazers {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
