package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anrbot/internal/bot"
	"anrbot/internal/logger"
	"anrbot/internal/reddit"
	"anrbot/internal/render"
	"anrbot/internal/tags"
	"anrbot/internal/usercfg"
	"anrbot/internal/version"

	"github.com/spf13/cobra"
)

var updateCheckCh <-chan version.UpdateCheckResult

var rootCmd = &cobra.Command{
	Use:   "anrbot",
	Short: "Answer [[card]] tags on an Android: Netrunner subreddit",
	Long: `anrbot watches a subreddit for [[card name]] tags and replies with links to
the matching Android: Netrunner cards. Run it from cron with 'anrbot run <subreddit>'.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)

		// run is unattended; nobody would see the notice.
		switch cmd.Name() {
		case "update", "version", "run":
		default:
			updateCheckCh = version.StartUpdateCheck()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if updateCheckCh == nil {
			return
		}
		select {
		case result := <-updateCheckCh:
			if result.NewVersion != "" {
				fmt.Fprintf(os.Stderr, "\n\033[33mA new version of anrbot is available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
				fmt.Fprintf(os.Stderr, "\033[33mRun 'anrbot update' to upgrade.\033[0m\n")
			}
		case <-time.After(500 * time.Millisecond):
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run <subreddit>",
	Short: "Answer new posts and comments once, then exit",
	Long: `Answer every post and comment made since the last run, save the new
watermarks to the state directory and stamp the status wiki page.

The watermark files (lastPost and lastComment) must exist; 'anrbot setup'
can create them.`,
	Example: "  anrbot run Netrunner\n  anrbot run Netrunner --dry-run",
	Args:    cobra.ExactArgs(1),
	Run:     runBot,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup [tag ...]",
	Short: "Preview the reply for one or more tags",
	Long: `Resolve tags against the cached card catalog and print the reply the bot
would post. Each argument is one tag; arguments that already contain [[...]]
are used as-is. Without arguments an interactive lookup opens.

Controls (interactive):
  - Enter: Resolve the typed tag
  - Up / Down: Select a card
  - Ctrl+O: Open the selected card page in a browser
  - Esc: Quit`,
	Example: "  anrbot lookup \"Sure Gamble\" noise\n  anrbot lookup \"Check out [[Corroder]]\"\n  anrbot lookup",
	Run:     runLookup,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure anrbot interactively",
	Long:  "Launch a setup wizard for the Reddit credentials, state directory and watermark files",
	Run:   runSetup,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage anrbot configuration",
	Long:  "Commands for managing anrbot configuration files, migrations, and settings",
}

var configMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate config file to current schema version",
	Long:  "Load the config file, apply any necessary schema migrations, and save it back to disk with the current schema version",
	Run:   runConfigMigrate,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the path to the configuration file",
	Run:   runConfigPath,
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the current configuration",
	Long:  "Display the current effective configuration, including defaults and environment variable overlays. Secrets are masked.",
	Run:   runConfigPrint,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long:  "Retrieve and display a specific configuration value. Keys: " + strings.Join(usercfg.Keys, ", "),
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value and save to file. Keys: " + strings.Join(usercfg.Keys, ", "),
	Args:  cobra.ExactArgs(2),
	Run:   runConfigSet,
}

var configDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration health",
	Long:  "Validate the configuration, state directory and watermark files, and suggest fixes",
	Run:   runConfigDoctor,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   runVersion,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Self-update anrbot to the latest release",
	Long:  "Check GitHub Releases for a newer version of anrbot and replace the current binary.",
	Run:   runUpdate,
}

var (
	verbose bool

	runDryRun bool

	lookupRefresh       bool
	lookupAbbreviations string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print replies instead of posting them; leave watermarks and the status page alone")

	lookupCmd.Flags().BoolVar(&lookupRefresh, "refresh", false, "Download the catalog first if the cached copy is stale")
	lookupCmd.Flags().StringVar(&lookupAbbreviations, "abbreviations", "", "File of [[nickname=card title]] entries to apply")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)

	configCmd.AddCommand(configMigrateCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configDoctorCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// fail prints a fatal error and exits. UserErrors carry their own title and
// remediation.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}

// subredditName accepts "Netrunner", "r/Netrunner" or "/r/Netrunner".
func subredditName(arg string) string {
	name := strings.TrimSpace(arg)
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "r/")
	return strings.Trim(name, "/")
}

func redditConfig(cfg usercfg.Config) reddit.Config {
	return reddit.Config{
		ClientID:          cfg.Reddit.ClientID,
		ClientSecret:      cfg.Reddit.ClientSecret,
		Username:          cfg.Reddit.Username,
		Password:          cfg.Reddit.Password,
		UserAgent:         cfg.Reddit.UserAgent,
		RequestsPerMinute: cfg.Reddit.RequestsPerMinute,
	}
}

func runBot(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	subreddit := subredditName(args[0])
	if subreddit == "" {
		fail(fmt.Errorf("invalid subreddit %q", args[0]))
	}

	cfg := usercfg.GetRuntimeConfig()
	if err := bot.CheckWatermarks(cfg); err != nil {
		fail(err)
	}

	client, err := reddit.New(ctx, redditConfig(cfg))
	if err != nil {
		fail(err)
	}

	session, err := bot.Open(ctx, cfg, client)
	if err != nil {
		fail(err)
	}
	session.DryRun = runDryRun
	session.Out = os.Stdout

	report, err := session.Run(ctx, subreddit)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "\n\033[93mRun cancelled; watermarks not saved.\033[0m")
			os.Exit(130)
		}
		fail(err)
	}

	logger.Debug("run %s finished: posts %+v, comments %+v", report.RunID, report.Posts, report.Comments)
	if runDryRun {
		fmt.Printf("Dry run: %d replies rendered\n", report.Posts.Replied+report.Comments.Replied)
	}
}

func runLookup(cmd *cobra.Command, args []string) {
	cfg := usercfg.GetRuntimeConfig()

	cat, err := bot.LoadCatalog(cmd.Context(), cfg, lookupRefresh)
	if err != nil {
		fail(err)
	}

	var abbr tags.Abbreviations
	if lookupAbbreviations != "" {
		data, err := os.ReadFile(lookupAbbreviations)
		if err != nil {
			fail(fmt.Errorf("read abbreviations: %w", err))
		}
		abbr = tags.ParseAbbreviations(string(data))
	}

	m, err := bot.NewMatcher(cfg, cat, abbr)
	if err != nil {
		fail(err)
	}
	renderer := render.Renderer{CardPage: cfg.CardPageTemplate}

	if len(args) == 0 {
		if err := StartLookup(m, renderer); err != nil {
			fail(err)
		}
		return
	}

	reply := previewReply(renderer, m, args)
	if reply == "" {
		fmt.Println("No tags to look up.")
		return
	}
	fmt.Println(reply)
}

// previewReply renders args the way the bot would answer a post containing
// them. Bare arguments become one tag each.
func previewReply(r render.Renderer, resolver render.Resolver, args []string) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.Contains(arg, "[[") {
			parts = append(parts, arg)
			continue
		}
		if arg = strings.TrimSpace(arg); arg != "" {
			parts = append(parts, "[["+arg+"]]")
		}
	}
	return r.Message(strings.Join(parts, " "), resolver)
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Println(version.GetVersionString())

	// Synchronous since the user is asking about the version
	ch := version.StartUpdateCheck()
	select {
	case result := <-ch:
		if result.NewVersion != "" {
			fmt.Printf("\n\033[33mUpdate available: %s (current: %s)\033[0m\n", result.NewVersion, version.GetShortVersion())
			fmt.Println("\033[33mRun 'anrbot update' to upgrade.\033[0m")
		}
	case <-time.After(5 * time.Second):
	}
}

func runUpdate(cmd *cobra.Command, args []string) {
	current := version.GetShortVersion()
	fmt.Printf("Current version: %s\nChecking for updates...\n", current)

	installed, err := version.SelfUpdate(cmd.Context())
	if err != nil {
		fmt.Println(err)
		return
	}
	if installed == current {
		fmt.Println("Already up to date.")
		return
	}
	fmt.Printf("Updated to %s\n", installed)
}
