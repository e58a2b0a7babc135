// Command lumen-chat is a terminal chat client for the Lumen inference
// API.
//
// Usage:
//
//	LUMEN_API_TOKEN=... lumen-chat [flags]
//
// Flags:
//
//	-model string      Model name (default "pharia-1-llm-7b")
//	-base-url string   API base URL (default: the hosted service)
//	-system string     System prompt prepended to every conversation
//	-max-tokens int    Completion token limit per reply (0 = no limit)
//	-token string      API token (overrides LUMEN_API_TOKEN)
//	-transcript string Path to a transcript file to resume and save
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	lumen "github.com/lumenlabs/lumen-go"
	bt "github.com/lumenlabs/lumen-go/bubbletea"
	lumenjson "github.com/lumenlabs/lumen-go/json"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lumen-chat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		model          = flag.String("model", "pharia-1-llm-7b", "Model name")
		baseURL        = flag.String("base-url", "", "API base URL")
		system         = flag.String("system", "", "System prompt prepended to every conversation")
		maxTokens      = flag.Int("max-tokens", 0, "Completion token limit per reply (0 = no limit)")
		tokenFlag      = flag.String("token", "", "API token (overrides LUMEN_API_TOKEN)")
		transcriptPath = flag.String("transcript", "", "Path to a transcript file to resume and save")
	)
	flag.Parse()

	token := *tokenFlag
	if token == "" {
		token = os.Getenv("LUMEN_API_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("no API token: set LUMEN_API_TOKEN or pass -token")
	}

	var opts []lumen.Option
	if *baseURL != "" {
		opts = append(opts, lumen.WithBaseURL(*baseURL))
	}
	client := lumen.New(token, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Resume a previous conversation when a transcript file exists.
	var history []lumen.Message
	created := time.Now().UTC()
	if *transcriptPath != "" {
		prev, err := lumenjson.Load(*transcriptPath)
		switch {
		case err == nil:
			history = prev.Messages
			created = prev.CreatedAt
		case errors.Is(err, os.ErrNotExist):
			// New transcript.
		default:
			return fmt.Errorf("load transcript: %w", err)
		}
	}

	chatFn := func(ctx context.Context, messages []lumen.Message, onEvent func(lumen.ChatEvent)) error {
		task := lumen.TaskChat{Messages: messages}
		if *system != "" {
			task.Messages = append([]lumen.Message{lumen.SystemMessage(*system)}, messages...)
		}
		if *maxTokens > 0 {
			task.Stopping = lumen.StopAfter(*maxTokens)
		}

		stream, err := client.ChatStream(ctx, *model, task)
		if err != nil {
			return err
		}
		defer stream.Close()

		for {
			evt, err := stream.Next()
			if err == io.EOF {
				return nil
			}
			var decodeErr *lumen.DecodeError
			if errors.As(err, &decodeErr) {
				continue
			}
			if err != nil {
				return err
			}
			onEvent(evt)
		}
	}

	m := bt.New(chatFn, *model)
	if len(history) > 0 {
		m = m.WithHistory(history)
	}

	final, err := bt.Run(ctx, m)
	if err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	// Save transcript on exit.
	if *transcriptPath != "" && len(final.History()) > 0 {
		t := lumenjson.Transcript{
			Model:     *model,
			CreatedAt: created,
			UpdatedAt: time.Now().UTC(),
			Messages:  final.History(),
			Usage:     final.Usage(),
		}
		if err := lumenjson.Save(*transcriptPath, t); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Transcript saved to %s\n", *transcriptPath)
	}

	return nil
}
