package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spetersoncode/answer/internal/config"
	"github.com/spetersoncode/answer/remote"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show local settings and the remote model configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		dim := color.New(color.FgHiBlack)
		green := color.New(color.FgGreen)

		cyan.Fprintln(os.Stdout, "\n  Local")
		printSetting("provider", cfg.Provider)
		printSetting("model", orDefault(cfg.Model))
		printSetting("log level", cfg.LogLevel)
		printSetting("max attempts", fmt.Sprint(cfg.MaxAttempts))
		printSetting("model lookup", fmt.Sprint(cfg.ChatGPT.ModelLookup))

		rc := remote.New(cfg.RemoteHost)

		sp := NewSpinner("Fetching remote config...")
		sp.Start()
		remoteCfg, err := rc.FetchConfig(cmd.Context())
		sp.Stop()
		if err != nil {
			return err
		}

		cyan.Fprintln(os.Stdout, "\n  Remote")
		printSetting("webapp model", remoteCfg.ChatGPTWebappModelName)
		printSetting("openai models", strings.Join(remoteCfg.OpenAIModelNames, ", "))

		promo, err := rc.FetchPromotion(cmd.Context())
		if err == nil && promo.URL != "" {
			fmt.Println()
			green.Printf("  %s ", promo.Title)
			dim.Println(promo.URL)
		}
		fmt.Println()
		return nil
	},
}

func printSetting(name, value string) {
	dim := color.New(color.FgHiBlack)
	dim.Printf("  %-14s", name)
	fmt.Println(value)
}

func orDefault(s string) string {
	if s == "" {
		return "(provider default)"
	}
	return s
}
