package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"orderagent"
	"orderagent/catalog"
	"orderagent/engine"
	"orderagent/generation"
	"orderagent/generation/bedrock"
	"orderagent/storage"
)

// Params is the front end's request envelope.
type Params struct {
	Input struct {
		Messages []orderagent.Turn `json:"messages"`
	} `json:"input"`
}

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

	var catalogConfig orderagent.CatalogS3Config
	if err := envdecode.Decode(&catalogConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		log.Fatalf("SETUP: Failed to load AWS config: %s", err)
	}

	cat, err := loadCatalog(ctx, s3.NewFromConfig(awsCfg), catalogConfig)
	if err != nil {
		log.Fatalf("SETUP: Failed to load catalog: %s", err)
	}
	slog.Info("SETUP: Catalog loaded", "items", cat.Len(), "bucket", catalogConfig.Bucket)

	llm := bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
		ModelID:     modelConfig.ModelID,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		TopP:        modelConfig.TopP,
	})
	gen := generation.NewRetrying(llm, generation.WithMaxTries(agentConfig.MaxRetries))

	eng := engine.New(cat, gen, engine.ConfigFrom(agentConfig, modelConfig), orderagent.NewStdoutTurnLogger())

	fn := func(ctx context.Context, params Params) (orderagent.TurnResult, error) {
		tracerProvider, meterProvider, otelShutdown, err := orderagent.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return orderagent.TurnResult{}, err
		}
		defer func() {
			if err := otelShutdown(ctx); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()

		responder, err := engine.NewInstrumentedEngine(eng,
			tracerProvider.Tracer(orderagent.TracerNameBedrock),
			meterProvider.Meter(orderagent.TracerNameBedrock))
		if err != nil {
			slog.Error("SETUP: Failed to instrument engine", "error", err)
			return orderagent.TurnResult{}, err
		}

		res, err := responder.Respond(ctx, params.Input.Messages)
		if err != nil {
			slog.Error("RESULT: Error handling turn", "error", err)
			return orderagent.TurnResult{}, fmt.Errorf("failed to respond: %w", err)
		}
		return res, nil
	}

	lambda.Start(fn)
}

func loadCatalog(ctx context.Context, client *s3.Client, cfg orderagent.CatalogS3Config) (*catalog.Catalog, error) {
	if cfg.Bucket == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(ctx, storage.NewS3Source(client, cfg.Bucket, cfg.Key))
}
