package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stargazers/pkg/auth"
	"stargazers/pkg/config"
	"stargazers/pkg/logger"
	"stargazers/pkg/models"
	"stargazers/pkg/pipeline"
	"stargazers/pkg/report"
	"stargazers/pkg/ui"
)

var (
	resetCrawl  bool
	resetEnrich bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl, enrich and rank stargazers",
	Long: `Run every stage in order. Completed stages are skipped and interrupted
stages resume from their checkpoint.`,
	RunE: runPipeline,
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "List the repository's stargazers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, false, func(ctx context.Context, p *pipeline.Pipeline, repo models.RepoID, _ *config.Config) error {
			stargazers, err := p.Crawl(ctx, repo)
			if err != nil {
				return err
			}
			ui.PrintSuccess(fmt.Sprintf("Collected %s stargazers", humanize.Comma(int64(len(stargazers)))))
			return nil
		})
	},
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch profiles for collected stargazers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, false, func(ctx context.Context, p *pipeline.Pipeline, repo models.RepoID, _ *config.Config) error {
			users, err := p.Enrich(ctx, repo)
			if err != nil {
				return err
			}
			ui.PrintSuccess(fmt.Sprintf("Enriched %s users", humanize.Comma(int64(len(users)))))
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rank enriched users by follower count",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(cmd, false, func(ctx context.Context, p *pipeline.Pipeline, repo models.RepoID, cfg *config.Config) error {
			entries, err := p.Report(ctx, repo)
			if err != nil {
				return err
			}
			ui.PrintTop(report.Top(entries, cfg.Report.TopN))
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete checkpoints so stages start over",
	Long: `Delete the crawl and/or enrichment checkpoints. Collected data is kept;
a reset crawl appends to the existing stargazer set. With neither flag both
checkpoints are deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := pipeline.ScopeAll
		if resetCrawl || resetEnrich {
			scope = 0
			if resetCrawl {
				scope |= pipeline.ScopeCrawl
			}
			if resetEnrich {
				scope |= pipeline.ScopeEnrich
			}
		}
		return withPipeline(cmd, false, func(ctx context.Context, p *pipeline.Pipeline, repo models.RepoID, _ *config.Config) error {
			if err := p.Reset(ctx, repo, scope); err != nil {
				return err
			}
			ui.PrintSuccess("Checkpoints deleted for " + repo.String())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd, crawlCmd, enrichCmd, reportCmd, resetCmd)
	resetCmd.Flags().BoolVar(&resetCrawl, "crawl", false, "reset the crawl checkpoint")
	resetCmd.Flags().BoolVar(&resetEnrich, "enrich", false, "reset the enrichment checkpoint")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	return withPipeline(cmd, true, func(ctx context.Context, p *pipeline.Pipeline, repo models.RepoID, cfg *config.Config) error {
		summary, err := p.Run(ctx, repo)
		if err != nil {
			return err
		}

		ui.PrintTop(report.Top(summary.Entries, cfg.Report.TopN))
		ui.PrintSuccess(fmt.Sprintf("%s stargazers, %s profiles in %s",
			humanize.Comma(int64(summary.Stargazers)),
			humanize.Comma(int64(summary.Users)),
			summary.Duration.Round(time.Millisecond)))
		return nil
	})
}

// withPipeline loads configuration, resolves the repository and token, and
// runs fn against a pipeline that is closed afterwards
func withPipeline(cmd *cobra.Command, prompt bool, fn func(context.Context, *pipeline.Pipeline, models.RepoID, *config.Config) error) error {
	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}
	log := logger.GetLogger()

	if prompt && !noPrompt && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := promptMissing(os.Stdin, os.Stdout, cfg); err != nil {
			return err
		}
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = storedToken(log)
	}

	repo, err := cfg.RepoID()
	if err != nil {
		return err
	}

	ui.PrintInfo("Repository", repo.String())
	if !cfg.Authenticated() {
		ui.PrintWarning("No token configured, requests are limited to 60 per hour")
	}

	p, err := pipeline.New(cmd.Context(), cfg,
		pipeline.WithLogger(log),
		pipeline.WithTracker(ui.NewStatusTracker()),
		pipeline.WithNotifier(ui.NewNotifier(!quiet).RateLimited),
	)
	if err != nil {
		return err
	}
	defer p.Close()

	return fn(cmd.Context(), p, repo, cfg)
}

// commandLineFlags collects the flags the user set explicitly
func commandLineFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	if changed("owner") {
		flags["owner"] = ownerFlag
	}
	if changed("repo") {
		flags["repo"] = repoFlag
	}
	if changed("token") {
		flags["token"] = tokenFlag
	}
	if changed("batch-size") {
		flags["batch-size"] = batchSize
	}
	if changed("storage") {
		flags["storage"] = storageFlag
	}
	if changed("output") {
		flags["output"] = outputFlag
	}
	if changed("top") {
		flags["top"] = topFlag
	}

	switch {
	case verbose:
		flags["log-level"] = "debug"
	case changed("log-level"):
		flags["log-level"] = logLevel
	case quiet:
		flags["log-level"] = "error"
	}
	return flags
}

// storedToken returns the token saved with 'auth login', if any
func storedToken(log logger.Logger) string {
	manager, err := auth.NewManager("")
	if err != nil {
		log.WithError(err).Debug("Token storage unavailable")
		return ""
	}
	token, source, err := manager.Load(auth.DefaultTokenName)
	if err != nil {
		return ""
	}
	log.WithField("source", source).Debug("Using stored token")
	return token.Value
}
