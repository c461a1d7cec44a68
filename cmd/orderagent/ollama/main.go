package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"orderagent"
	"orderagent/catalog"
	"orderagent/engine"
	"orderagent/extract"
	"orderagent/generation"
	"orderagent/generation/mock"
	"orderagent/generation/ollama"
	"orderagent/slack"
	"orderagent/storage"
)

func main() {
	ctx := context.Background()

	var modelConfig orderagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig orderagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var slackConfig orderagent.SlackConfig
	if err := envdecode.Decode(&slackConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	cat, err := loadCatalog(ctx, agentConfig.CatalogPath)
	if err != nil {
		slog.Error("SETUP: Failed to load catalog", "error", err)
		return
	}
	slog.Info("SETUP: Catalog loaded", "items", cat.Len())

	logger, cleanup, err := newTurnLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create turn logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush turn log", "error", err)
		}
	}()

	var gen generation.Generator
	tracerName := orderagent.TracerNameOllama
	if modelConfig.ModelID == "mock" {
		tracerName = orderagent.TracerNameMock
		gen = mock.NewGenerator(cat, extract.New(cat, extract.WithWindow(agentConfig.QuantityWindow)))
		slog.Info("SETUP: Using offline mock generator")
	} else {
		llm, err := ollama.NewClient(ollama.ClientOpts{
			BaseEndpoint: agentConfig.BaseOllamaEndpoint,
			ModelID:      modelConfig.ModelID,
			HTTPClient:   http.DefaultClient,
		})
		if err != nil {
			slog.Error("SETUP: Failed to create LLM client", "error", err)
			return
		}
		gen = generation.NewRetrying(llm, generation.WithMaxTries(agentConfig.MaxRetries))
	}

	tracerProvider, meterProvider, otelShutdown, err := orderagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(tracerName)
	meter := meterProvider.Meter(tracerName)

	ctx, span := tracer.Start(ctx, tracerName, trace.WithAttributes(
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("model.max_tokens", int(modelConfig.MaxTokens)),
		attribute.Float64("model.temperature", float64(modelConfig.Temperature)),
		attribute.Float64("model.top_p", float64(modelConfig.TopP)),
	))
	defer span.End()

	cfg := engine.ConfigFrom(agentConfig, modelConfig)
	slog.Info("SETUP: Engine configured", "config", cfg.String())

	responder, err := engine.NewInstrumentedEngine(engine.New(cat, gen, cfg, logger), tracer, meter)
	if err != nil {
		slog.Error("SETUP: Failed to instrument engine", "error", err)
		return
	}

	finalOrder, err := converse(ctx, responder, os.Stdin, os.Stdout, agentConfig.DumpTurns)
	if err != nil {
		slog.Error("FAILURE: Conversation ended with error", "error", err)
		return
	}

	webhookURL := slackConfig.WebhookURL
	if webhookURL == "" {
		testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := new(bytes.Buffer)
			body.ReadFrom(r.Body) // nolint: errcheck
			slog.Info("Received request",
				"method", r.Method,
				"path", r.URL.Path,
				"body", body.String(),
			)
			w.WriteHeader(http.StatusOK)
		}))
		defer testServer.Close()
		webhookURL = testServer.URL
	}

	slackClient := slack.NewClient(webhookURL, http.DefaultClient, cat)
	if err := slackClient.PostOrder(ctx, slackConfig.Channel, finalOrder.Order); err != nil {
		slog.Error("Failed to post order to Slack", "error", err)
	}
}

// converse runs a read-respond loop until EOF or "quit" and returns the last assistant turn.
func converse(ctx context.Context, r orderagent.Responder, in io.Reader, out io.Writer, dump bool) (orderagent.TurnResult, error) {
	var history []orderagent.Turn
	var last orderagent.TurnResult

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		if strings.EqualFold(text, "quit") || strings.EqualFold(text, "exit") {
			break
		}

		history = append(history, orderagent.Turn{Role: generation.RoleUser, Content: text})
		res, err := r.Respond(ctx, history)
		if err != nil {
			return last, err
		}
		history = append(history, res.Turn())
		last = res

		if dump {
			orderagent.DumpTurn(out, res)
		}
		fmt.Fprintf(out, "%s\n> ", res.Response)
	}
	if err := scanner.Err(); err != nil {
		return last, fmt.Errorf("failed to read input: %w", err)
	}
	return last, nil
}

func loadCatalog(ctx context.Context, path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(ctx, storage.NewFileSource(path))
}

func newTurnLogger(modelID string) (orderagent.TurnLogger, func() error, error) {
	logFilePath := orderagent.NewTurnLogFilePath(modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := orderagent.NewFileTurnLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
