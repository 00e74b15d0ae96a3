package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"anrbot/internal/bot"
	"anrbot/internal/catalog"
	"anrbot/internal/matcher"
	"anrbot/internal/usercfg"
	"anrbot/internal/watermark"

	"github.com/spf13/cobra"
)

func runConfigMigrate(cmd *cobra.Command, args []string) {
	if err := usercfg.MigrateAndSave(); err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfigPath(cmd *cobra.Command, args []string) {
	fmt.Println(usercfg.Path())
}

func runConfigPrint(cmd *cobra.Command, args []string) {
	printConfig(os.Stdout, usercfg.GetRuntimeConfig())
	fmt.Printf("\nConfig file location: %s\n", usercfg.Path())
}

func printConfig(w io.Writer, config usercfg.Config) {
	fmt.Fprintln(w, "Configuration (effective):")
	for _, key := range usercfg.Keys {
		value, _ := config.Get(key)
		if strings.Contains(value, "\n") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(w, "  %s = %s\n", key, value)
	}
}

func runConfigGet(cmd *cobra.Command, args []string) {
	value, err := usercfg.GetRuntimeConfig().Get(args[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	fmt.Println(value)
}

func runConfigSet(cmd *cobra.Command, args []string) {
	key, value := args[0], args[1]

	config, err := usercfg.Load()
	if err != nil && err != usercfg.ErrNotConfigured {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if key == "suggest.algorithm" {
		if _, err := matcher.ParseAlgorithm(value); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	if err := config.Set(key, value); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if err := usercfg.Save(config); err != nil {
		fmt.Printf("Failed to save config: %v\n", err)
		os.Exit(1)
	}

	shown, _ := config.Get(key)
	fmt.Printf("Set %s = %s\n", key, shown)
}

func runConfigDoctor(cmd *cobra.Command, args []string) {
	fmt.Println("🏥 anrbot Configuration Doctor")
	fmt.Println("=============================")

	configPath := usercfg.Path()
	legacyPath := usercfg.LegacyPath()
	issues := 0

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if _, err := os.Stat(legacyPath); os.IsNotExist(err) {
			fmt.Println("ℹ️  No config file found - using defaults and environment")
			fmt.Println("   Create one with: anrbot setup")
		} else {
			fmt.Println("⚠️  Using legacy config path")
			fmt.Println("   Consider migrating: anrbot config migrate")
			fmt.Printf("   Legacy path: %s\n", legacyPath)
			fmt.Printf("   Preferred path: %s\n", configPath)
			issues++
		}
	} else {
		fmt.Println("✅ Config file found at XDG-compliant location")
	}

	issues += diagnose(os.Stdout, usercfg.GetRuntimeConfig())

	fmt.Println()
	if issues == 0 {
		fmt.Println("🎉 No issues found! Configuration looks healthy.")
	} else {
		fmt.Printf("Found %d issue(s). See suggestions above.\n", issues)
		os.Exit(1)
	}
}

// diagnose checks everything `anrbot run` depends on and returns the number
// of problems it reported.
func diagnose(w io.Writer, config usercfg.Config) int {
	issues := 0
	warn := func(format string, args ...interface{}) {
		fmt.Fprintf(w, "⚠️  "+format+"\n", args...)
		issues++
	}
	ok := func(format string, args ...interface{}) {
		fmt.Fprintf(w, "✅ "+format+"\n", args...)
	}

	if config.SchemaVersion < usercfg.CurrentSchemaVersion {
		warn("Config schema is outdated (v%d, current: v%d)", config.SchemaVersion, usercfg.CurrentSchemaVersion)
		fmt.Fprintln(w, "   Run: anrbot config migrate")
	} else {
		ok("Config schema is current (v%d)", config.SchemaVersion)
	}

	if missing := redditConfig(config).Missing(); len(missing) > 0 {
		warn("Reddit credentials incomplete: %s", strings.Join(missing, ", "))
		fmt.Fprintln(w, "   Run: anrbot setup, or set ANRBOT_REDDIT_* environment variables")
	} else {
		ok("Reddit credentials configured for %s", config.Reddit.Username)
	}

	if info, err := os.Stat(config.StateDir); err != nil || !info.IsDir() {
		warn("State directory missing: %s", config.StateDir)
		fmt.Fprintln(w, "   Run: anrbot setup to create it")
	} else {
		ok("State directory: %s", config.StateDir)
	}

	for _, name := range []string{watermark.PostsFile, watermark.CommentsFile} {
		ts, err := watermark.Load(config.StatePath(name))
		if err != nil {
			warn("Watermark %s unusable", name)
			fmt.Fprintf(w, "   %v\n", err)
			continue
		}
		ok("Watermark %s: %s", name, time.Unix(int64(ts), 0).UTC().Format(time.RFC1123))
	}

	store := catalog.NewStore(config.StatePath(bot.CatalogFile), config.CatalogURL)
	if age, found := store.Age(); !found {
		fmt.Fprintln(w, "ℹ️  No cached card catalog yet; the next run downloads it")
	} else if store.Stale() {
		fmt.Fprintf(w, "ℹ️  Cached card catalog is %s old; the next run refreshes it\n", age.Round(time.Minute))
	} else {
		ok("Cached card catalog is fresh (%s old)", age.Round(time.Minute))
	}

	if !strings.Contains(config.CardPageTemplate, catalog.CodePlaceholder) {
		warn("card_page_template has no %s placeholder: %s", catalog.CodePlaceholder, config.CardPageTemplate)
	}

	if _, err := config.ReplyBackoff(); err != nil {
		warn("Invalid reply backoff: %v", err)
		fmt.Fprintln(w, "   Run: anrbot config set reply.backoff 30s")
	} else {
		ok("Rate-limit backoff: %s (max attempts: %s)", config.Reply.Backoff, attemptsLabel(config.Reply.MaxAttempts))
	}

	if _, err := matcher.ParseAlgorithm(config.Suggest.Algorithm); err != nil {
		warn("%v", err)
	} else {
		ok("Suggestions: %s, at most %d, similarity >= %.2f", config.Suggest.Algorithm, config.Suggest.Limit, config.Suggest.MinSimilarity)
	}

	return issues
}

func attemptsLabel(n int) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}
