package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"igdl/pkg/auth"
	"igdl/pkg/config"
	"igdl/pkg/logger"
	"igdl/pkg/scraper"
	"igdl/pkg/ui"
	"igdl/pkg/ui/tui"
)

var (
	// Version information
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	concurrency int
	fetcher     string

	// Download flags
	username  string
	password  string
	outputDir string
	profile   bool
	maxPosts  int
	gui       bool
)

// errReported means the failure has already been shown to the user
var errReported = errors.New("reported")

var rootCmd = &cobra.Command{
	Use:   "igdl <url>",
	Short: "Download photos and videos from Instagram posts and profiles",
	Long: `igdl logs into Instagram and downloads the media of a single post or of a
whole profile.

Post URLs (/p/, /reel/, /tv/) download that post, including every item of a
carousel. Any other URL is treated as a profile and downloads its posts into
a directory named after the user. Files that already exist are skipped, so an
interrupted download can simply be run again.

Credentials are taken from -u/-p, IGDL_USERNAME/IGDL_PASSWORD, the config
file, or an account stored with 'igdl auth login'.`,
	Example: `  # Download a single post
  igdl https://www.instagram.com/p/CxYz123AbC/ -u me -p secret

  # Download the 20 newest posts of a profile
  igdl https://www.instagram.com/natgeo/ --max-posts 20 -o ./photos

  # Use the stored account and the interactive window
  igdl --gui`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDownload,
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			ui.PrintError("Error", err)
		}
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/igdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "number of parallel file downloads")
	rootCmd.PersistentFlags().StringVar(&fetcher, "fetcher", "", "page fetcher: feed or graphql")

	rootCmd.Flags().StringVarP(&username, "username", "u", "", "instagram username")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "instagram password")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default \"downloads\")")
	rootCmd.Flags().BoolVar(&profile, "profile", false, "treat the URL as a profile even if it looks like a post")
	rootCmd.Flags().IntVar(&maxPosts, "max-posts", 0, "maximum number of media items for a profile (default all)")
	rootCmd.Flags().BoolVar(&gui, "gui", false, "open the interactive terminal window")

	rootCmd.SetVersionTemplate(`igdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the flags the user actually set over file, env and
// defaults, then starts the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	set := cmd.Flags()
	changed := func(name string) bool {
		f := set.Lookup(name)
		return f != nil && f.Changed
	}

	flags := make(map[string]interface{})
	if changed("log-level") {
		flags["log-level"] = logLevel
	}
	if changed("concurrency") {
		flags["concurrency"] = concurrency
	}
	if changed("fetcher") {
		flags["fetcher"] = fetcher
	}
	if changed("username") {
		flags["username"] = username
	}
	if changed("password") {
		flags["password"] = password
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("max-posts") {
		flags["max-posts"] = maxPosts
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// credentials fills in what the config lacks from stored accounts
func credentials(cfg *config.Config) (string, string) {
	user, pass := cfg.Instagram.Username, cfg.Instagram.Password
	if user != "" && pass != "" {
		return user, pass
	}

	manager, err := auth.NewManager()
	if err != nil {
		logger.GetLogger().WithError(err).Warn("Credential store unavailable")
		return user, pass
	}

	resolvedUser, resolvedPass, err := manager.Resolve(user, pass)
	if err != nil {
		logger.GetLogger().WithError(err).Debug("No stored credentials")
		return user, pass
	}
	logger.GetLogger().WithField("account", resolvedUser).Info("Using stored credentials")
	return resolvedUser, resolvedPass
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var target string
	if len(args) > 0 {
		target = strings.TrimSpace(args[0])
	}
	if target == "" && !gui {
		ui.PrintError("A profile or post URL is required")
		fmt.Fprintln(os.Stderr, cmd.UsageString())
		return errReported
	}
	user, pass := credentials(cfg)

	s, err := scraper.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize downloader: %w", err)
	}

	if gui {
		return tui.Run(cmd.Context(), tui.FromScraper(s), tui.Defaults{
			Username:  user,
			Password:  pass,
			URL:       target,
			Profile:   profile,
			MaxPosts:  cfg.Download.MaxPosts,
			OutputDir: cfg.Download.OutputDir,
		})
	}

	if user == "" || pass == "" {
		ui.PrintError("Instagram username and password are required")
		fmt.Fprintln(ui.Output, "\nProvide them with -u/-p, IGDL_USERNAME/IGDL_PASSWORD, or store an account:")
		fmt.Fprintln(ui.Output, "  igdl auth login")
		return errReported
	}

	ui.PrintLogo()
	ui.PrintInfo("Target", target)
	ui.PrintInfo("Output", cfg.Download.OutputDir)

	task := s.Start(cmd.Context(), scraper.Request{
		URL:       target,
		Username:  user,
		Password:  pass,
		Profile:   profile,
		MaxPosts:  cfg.Download.MaxPosts,
		OutputDir: cfg.Download.OutputDir,
	})

	progress := ui.NewProgress(ui.Output, strings.EqualFold(cfg.Logging.Level, "debug"))
	for ev := range task.Events() {
		progress.Handle(ev)
	}

	summary, err := task.Wait()
	if err != nil {
		logger.GetLogger().WithError(err).WithField("target", target).Error("Download failed")
		return err
	}
	if summary != nil && summary.Err() != nil {
		ui.PrintWarning("Finished with failures", summary.Err())
	}
	return nil
}
