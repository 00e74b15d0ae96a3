package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"anrbot/internal/matcher"
	"anrbot/internal/reddit"
	"anrbot/internal/usercfg"
	"anrbot/internal/watermark"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("anrbot Setup Wizard")
	fmt.Println("===================")

	currentConfig := usercfg.GetRuntimeConfig()
	newConfig := currentConfig
	isFirstRun := !usercfg.IsConfigured()

	if isFirstRun {
		fmt.Println("Welcome! You need a Reddit \"script\" app for the bot account.")
		fmt.Println("Create one at https://www.reddit.com/prefs/apps and keep its id and secret handy.")
		fmt.Println()
	} else {
		fmt.Printf("Existing config found at %s, modifying.\n\n", usercfg.Path())
		fmt.Printf("  Reddit account: %s\n", currentConfig.Reddit.Username)
		fmt.Printf("  State dir: %s\n", currentConfig.StateDir)
		fmt.Printf("  Suggestions: %s\n", currentConfig.Suggest.Algorithm)
		fmt.Println()
	}

	if err := survey.AskOne(&survey.Input{
		Message: "Reddit app client id:",
		Default: currentConfig.Reddit.ClientID,
	}, &newConfig.Reddit.ClientID, survey.WithValidator(survey.Required)); err != nil {
		fmt.Println("Setup cancelled")
		return
	}

	secret, err := askSecret("Reddit app client secret", currentConfig.Reddit.ClientSecret)
	if err != nil {
		fmt.Println("Setup cancelled")
		return
	}
	newConfig.Reddit.ClientSecret = secret

	if err := survey.AskOne(&survey.Input{
		Message: "Bot account username:",
		Default: currentConfig.Reddit.Username,
	}, &newConfig.Reddit.Username, survey.WithValidator(survey.Required)); err != nil {
		fmt.Println("Setup cancelled")
		return
	}

	password, err := askSecret("Bot account password", currentConfig.Reddit.Password)
	if err != nil {
		fmt.Println("Setup cancelled")
		return
	}
	newConfig.Reddit.Password = password

	if err := survey.AskOne(&survey.Input{
		Message: "State directory (watermarks and cached cards):",
		Default: currentConfig.StateDir,
	}, &newConfig.StateDir, survey.WithValidator(survey.Required)); err != nil {
		fmt.Println("Setup cancelled")
		return
	}

	if err := survey.AskOne(&survey.Input{
		Message: "Bot name as it appears on Reddit (blank to look it up each run):",
		Default: currentConfig.BotName,
	}, &newConfig.BotName); err != nil {
		fmt.Println("Setup cancelled")
		return
	}

	algoDefault := currentConfig.Suggest.Algorithm
	if _, err := matcher.ParseAlgorithm(algoDefault); err != nil || algoDefault == "" {
		algoDefault = string(matcher.Ratio)
	}
	if err := survey.AskOne(&survey.Select{
		Message: "Similarity measure for \"did you mean\" suggestions:",
		Options: matcher.AlgorithmNames(),
		Default: algoDefault,
	}, &newConfig.Suggest.Algorithm); err != nil {
		fmt.Println("Setup cancelled")
		return
	}

	if err := usercfg.Save(newConfig); err != nil {
		fail(err)
	}

	var seed bool
	if err := survey.AskOne(&survey.Confirm{
		Message: "Create missing watermark files starting from now? (older posts will be ignored)",
		Default: isFirstRun,
	}, &seed); err != nil {
		fmt.Println("Setup cancelled")
		return
	}
	if seed {
		lines, err := seedWatermarks(newConfig, time.Now())
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		for _, line := range lines {
			fmt.Println("  " + line)
		}
	}

	var verify bool
	if err := survey.AskOne(&survey.Confirm{
		Message: "Verify the Reddit login now?",
		Default: true,
	}, &verify); err != nil {
		fmt.Println("Setup cancelled")
		return
	}
	if verify {
		fmt.Println("\nLogging in to Reddit...")
		client, err := reddit.New(cmd.Context(), redditConfig(newConfig))
		if err != nil {
			fmt.Println(err)
		} else if name, err := client.Me(cmd.Context()); err != nil {
			fmt.Printf("Warning: logged in but could not read the account: %v\n", err)
		} else {
			fmt.Printf("✅ Logged in as /u/%s\n", name)
		}
	}

	fmt.Printf("\nConfiguration saved to: %s\n", usercfg.Path())
	fmt.Println("\nFinal configuration:")
	fmt.Printf("  Reddit account: %s\n", newConfig.Reddit.Username)
	fmt.Printf("  State dir: %s\n", newConfig.StateDir)
	if newConfig.BotName != "" {
		fmt.Printf("  Bot name: %s\n", newConfig.BotName)
	}
	fmt.Printf("  Suggestions: %s\n", newConfig.Suggest.Algorithm)
	fmt.Println("\nNext: anrbot run <subreddit>")
}

// askSecret prompts for a password-style value. An empty answer keeps the
// current value when there is one.
func askSecret(label, current string) (string, error) {
	message := label + ":"
	if current != "" {
		message = label + " (blank keeps the current one):"
	}

	var answer string
	opts := []survey.AskOpt{}
	if current == "" {
		opts = append(opts, survey.WithValidator(survey.Required))
	}
	if err := survey.AskOne(&survey.Password{Message: message}, &answer, opts...); err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

// seedWatermarks creates the state directory and any missing watermark file
// set to now. Existing files are left alone.
func seedWatermarks(cfg usercfg.Config, now time.Time) ([]string, error) {
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	ts := float64(now.Unix())
	var lines []string
	for _, name := range []string{watermark.PostsFile, watermark.CommentsFile} {
		path := cfg.StatePath(name)
		created, err := watermark.Seed(path, ts)
		if err != nil {
			return lines, err
		}
		if created {
			lines = append(lines, fmt.Sprintf("Created %s (%s)", filepath.Base(path), watermark.Format(ts)))
		} else {
			lines = append(lines, fmt.Sprintf("Kept existing %s", filepath.Base(path)))
		}
	}
	return lines, nil
}
