package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spetersoncode/answer"
	"github.com/spetersoncode/answer/client"
	"github.com/spetersoncode/answer/internal/config"
	"github.com/spetersoncode/answer/internal/stream"
	"github.com/spetersoncode/answer/internal/version"
)

var (
	providerFlag string
	modelFlag    string
	systemFlag   string
	keepFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a chat backend a question",
	Long: `ask sends a question to the configured chat backend and streams the
markdown answer to the terminal.

Examples:
  ask what is the capital of France
  ask --provider anthropic "summarize the SSE wire format"
  ask --keep "start a conversation I can continue in the web app"`,
	Args:         cobra.MinimumNArgs(1),
	RunE:         runAsk,
	SilenceUsage: true,
	// Errors are printed by main.
	SilenceErrors: true,
	Version:       version.Version,
}

func init() {
	rootCmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "Provider to use (default from ANSWER_PROVIDER)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model override")
	rootCmd.Flags().StringVar(&systemFlag, "system", "", "System instruction override")
	rootCmd.Flags().BoolVar(&keepFlag, "keep", false, "Keep the upstream conversation instead of hiding it")

	rootCmd.AddCommand(configCmd)
}

// Execute is the entry point called from main.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	name := answer.ProviderName(cfg.Provider)
	if providerFlag != "" {
		name = answer.ProviderName(providerFlag)
	}

	var opts []answer.Option
	if modelFlag != "" {
		opts = append(opts, answer.WithModel(modelFlag))
	}
	if systemFlag != "" {
		opts = append(opts, answer.WithSystemPrompt(systemFlag))
	}

	c := client.New(cfg.ClientConfig(logger))
	prompt := strings.Join(args, " ")

	sp := NewSpinner("Thinking...")
	sp.Start()

	call, err := c.Generate(cmd.Context(), name, prompt, opts...)
	if err != nil {
		sp.Stop()
		return err
	}

	text, err := Render(os.Stdout, call, sp.Stop)
	sp.Stop()

	if !keepFlag {
		call.Cleanup()
		waitCtx, cancel := context.WithTimeout(context.Background(), cfg.ChatGPT.CleanupTimeout)
		stream.WaitDetached(waitCtx)
		cancel()
	}

	if err != nil {
		return describe(err)
	}
	if text == "" {
		yellow := color.New(color.FgYellow)
		yellow.Fprintln(os.Stderr, "  No answer received.")
	}
	return nil
}

// describe turns a call error into a user-facing message.
func describe(err error) error {
	switch {
	case answer.IsAborted(err):
		return fmt.Errorf("cancelled")
	case answer.IsAuth(err):
		return fmt.Errorf("not signed in, log in to the web app and try again: %w", err)
	default:
		return err
	}
}
