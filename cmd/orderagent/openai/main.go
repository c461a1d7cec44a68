package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"

	"orderagent"
	"orderagent/catalog"
	"orderagent/engine"
	"orderagent/generation"
	"orderagent/generation/openai"
	"orderagent/storage"
)

// One-shot turn against an OpenAI-compatible endpoint. The message is taken from the
// arguments; a JSON history array on stdin is prepended when stdin is not a terminal.
func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("FAILURE: Turn failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var modelConfig orderagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	var agentConfig orderagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	var openaiConfig orderagent.OpenAIConfig
	if err := envdecode.Decode(&openaiConfig); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}

	cat := catalog.Default()
	if agentConfig.CatalogPath != "" {
		loaded, err := catalog.Load(ctx, storage.NewFileSource(agentConfig.CatalogPath))
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		cat = loaded
	}

	llm, err := openai.NewClient(openai.ClientOpts{
		Token:   openaiConfig.Token,
		BaseURL: openaiConfig.BaseURL,
		ModelID: modelConfig.ModelID,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	gen := generation.NewRetrying(llm, generation.WithMaxTries(agentConfig.MaxRetries))

	history, err := readHistory(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	message := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if message == "" {
		message = "two cappuccinos and a croissant"
	}
	history = append(history, orderagent.Turn{Role: generation.RoleUser, Content: message})

	tracerProvider, meterProvider, otelShutdown, err := orderagent.InitOtel(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	eng := engine.New(cat, gen, engine.ConfigFrom(agentConfig, modelConfig), orderagent.NewStdoutTurnLogger())
	responder, err := engine.NewInstrumentedEngine(eng,
		tracerProvider.Tracer(orderagent.TracerNameOpenAI),
		meterProvider.Meter(orderagent.TracerNameOpenAI))
	if err != nil {
		return fmt.Errorf("failed to instrument engine: %w", err)
	}

	res, err := responder.Respond(ctx, history)
	if err != nil {
		return fmt.Errorf("error handling turn: %w", err)
	}

	if agentConfig.DumpTurns {
		orderagent.DumpTurn(os.Stderr, res)
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func readHistory(f *os.File) ([]orderagent.Turn, error) {
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return nil, nil
	}
	var history []orderagent.Turn
	if err := json.NewDecoder(f).Decode(&history); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return history, nil
}
