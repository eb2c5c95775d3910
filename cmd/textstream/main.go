// Command textstream streams generated text from a token source and
// renders it as it arrives.
//
// Usage:
//
//	TEXTSTREAM_URL=https://...  textstream [flags]
//	ANTHROPIC_API_KEY=sk-...    textstream [flags]
//	GEMINI_API_KEY=gk-...       textstream [flags]
//
// Flags:
//
//	-provider string      Source: http, anthropic, gemini (auto-detected from env vars if omitted)
//	-url string           Token source endpoint for the http provider
//	-api-key string       API key (overrides ANTHROPIC_API_KEY or GEMINI_API_KEY)
//	-model string         Model ID for the anthropic and gemini providers
//	-identity string      Identity sent with every request
//	-prompt string        Run one session without the TUI and print the text
//	-transcript string    Path to save the last session's transcript
//	-expected-length int  Expected text length for the progress estimate
//	-log-level string     debug, info, warn, error
//	-log-format string    text, json
//	-log-file string      Log destination (default: stderr with -prompt, discarded in the TUI)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/fwojciec/textstream"
	bt "github.com/fwojciec/textstream/bubbletea"
	tsjson "github.com/fwojciec/textstream/json"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "textstream: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		providerFlag   = flag.String("provider", "", "Source: http, anthropic, gemini (auto-detected from env vars if omitted)")
		urlFlag        = flag.String("url", "", "Token source endpoint for the http provider (overrides TEXTSTREAM_URL)")
		apiKey         = flag.String("api-key", "", "API key (overrides ANTHROPIC_API_KEY or GEMINI_API_KEY)")
		model          = flag.String("model", "", "Model ID for the anthropic and gemini providers")
		identity       = flag.String("identity", "", "Identity sent with every request")
		prompt         = flag.String("prompt", "", "Run one session without the TUI and print the text")
		transcriptPath = flag.String("transcript", "", "Path to save the last session's transcript")
		expectedLength = flag.Int("expected-length", 0, "Expected text length for the progress estimate")
		logLevel       = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat      = flag.String("log-format", "text", "Log format: text, json")
		logFile        = flag.String("log-file", "", "Log destination (default: stderr with -prompt, discarded in the TUI)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logOutput := *logFile
	if logOutput == "" && *prompt == "" {
		// Anything written to stderr would corrupt the TUI.
		logOutput = "discard"
	}
	logger, closeLog, err := newLogger(logConfig{Level: *logLevel, Format: *logFormat, Output: logOutput})
	if err != nil {
		return err
	}
	defer closeLog()

	// Env vars are read here and passed as values.
	src, err := resolveSource(ctx, sourceConfig{
		provider:        *providerFlag,
		url:             *urlFlag,
		apiKey:          *apiKey,
		model:           *model,
		urlEnv:          os.Getenv("TEXTSTREAM_URL"),
		anthropicKeyEnv: os.Getenv("ANTHROPIC_API_KEY"),
		geminiKeyEnv:    os.Getenv("GEMINI_API_KEY"),
	}, logger)
	if err != nil {
		return err
	}

	ctrl := textstream.NewController(src,
		textstream.WithLogger(logger),
		textstream.WithExpectedLength(*expectedLength),
	)

	var runErr error
	if *prompt != "" {
		runErr = runPlain(ctx, ctrl, *prompt, *identity, os.Stdout)
	} else {
		m := bt.New(ctrl, *identity, textstream.DefaultTheme())
		if err := bt.Run(ctx, m); err != nil {
			runErr = fmt.Errorf("TUI: %w", err)
		}
	}

	if *transcriptPath != "" {
		if err := saveTranscript(ctrl, *transcriptPath); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

// saveTranscript writes the last session's transcript to path. Having no
// session to save is not an error.
func saveTranscript(ctrl *textstream.Controller, path string) error {
	t, err := ctrl.Transcript()
	if errors.Is(err, textstream.ErrNoTranscript) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := tsjson.Save(path, t); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}
