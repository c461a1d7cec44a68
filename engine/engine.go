// Package engine runs one order-taking turn: it recovers the running order from history,
// asks the generation service for the next reply, and reconciles the proposed order with the
// catalog before anything is committed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"orderagent"
	"orderagent/catalog"
	"orderagent/extract"
	"orderagent/generation"
	"orderagent/order"
	"orderagent/reply"
)

// FallbackResponse is sent when the generation service gives no usable answer.
const FallbackResponse = "I'm sorry, I had trouble processing that. Could you please repeat your request?"

// ErrEmptyHistory is returned when there is no message to respond to.
var ErrEmptyHistory = errors.New("conversation history is empty")

type Config struct {
	AgentName         string
	ShopName          string
	MaxMessageHistory int
	QuantityWindow    int
	Temperature       float64
	TopP              float64
	// MaxTokens caps the response. Zero derives a budget from the prompt size.
	MaxTokens int
	Timeout   time.Duration
	// ExtractBeforeGenerate folds items found in the user's message into the prior order
	// shown to the model. The model's proposed order still decides the result.
	ExtractBeforeGenerate bool
}

func DefaultConfig() Config {
	return Config{
		AgentName:         orderagent.AgentTag,
		ShopName:          DefaultShopName,
		MaxMessageHistory: 10,
		QuantityWindow:    extract.DefaultWindow,
		Temperature:       0.1,
		TopP:              0.8,
		Timeout:           30 * time.Second,
	}
}

// ConfigFrom builds a Config from the environment-decoded settings.
func ConfigFrom(agent orderagent.AgentConfig, model orderagent.ModelConfig) Config {
	cfg := DefaultConfig()
	if agent.AgentName != "" {
		cfg.AgentName = agent.AgentName
	}
	cfg.MaxMessageHistory = agent.MaxMessageHistory
	cfg.QuantityWindow = agent.QuantityWindow
	cfg.Timeout = agent.GenerationTimeout
	cfg.ExtractBeforeGenerate = agent.ExtractBeforeGenerate
	cfg.Temperature = float64(model.Temperature)
	cfg.TopP = float64(model.TopP)
	cfg.MaxTokens = int(model.MaxTokens)
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AgentName == "" {
		c.AgentName = d.AgentName
	}
	if c.ShopName == "" {
		c.ShopName = d.ShopName
	}
	if c.MaxMessageHistory <= 0 {
		c.MaxMessageHistory = d.MaxMessageHistory
	}
	if c.QuantityWindow <= 0 {
		c.QuantityWindow = d.QuantityWindow
	}
	return c
}

// Engine holds only immutable collaborators and is safe for concurrent use across
// conversations.
type Engine struct {
	cat          *catalog.Catalog
	gen          generation.Generator
	ex           *extract.Extractor
	logger       orderagent.TurnLogger
	cfg          Config
	systemPrompt string
}

// New initializes an engine. A nil logger discards turn logs.
func New(cat *catalog.Catalog, gen generation.Generator, cfg Config, log orderagent.TurnLogger) *Engine {
	cfg = cfg.withDefaults()
	if log == nil {
		log = orderagent.NewNoOpTurnLogger()
	}
	return &Engine{
		cat:          cat,
		gen:          gen,
		ex:           extract.New(cat, extract.WithWindow(cfg.QuantityWindow)),
		logger:       log,
		cfg:          cfg,
		systemPrompt: SystemPrompt(cfg.ShopName, cat),
	}
}

// Outcome describes how a turn was reconciled.
type Outcome struct {
	// GenerationErr is set when the generation service failed.
	GenerationErr error
	// Malformed is set when the service answered with unusable output.
	Malformed error
	Dropped   []order.Rejection
	Repaired  []order.Rejection
	Latency   time.Duration
}

// Fallback reports whether the turn ended with the apology reply.
func (o Outcome) Fallback() bool {
	return o.GenerationErr != nil || o.Malformed != nil
}

// Respond produces the assistant turn for the newest message in history. Generation failures
// never surface as errors: they yield the fallback reply with the prior order intact.
func (e *Engine) Respond(ctx context.Context, history []orderagent.Turn) (orderagent.TurnResult, error) {
	ctx, span := otel.Tracer(orderagent.TracerNameEngine).Start(ctx, "Engine.Respond")
	defer span.End()

	res, outcome, err := e.respond(ctx, history)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return res, err
	}
	span.SetAttributes(
		attribute.Bool("fallback", outcome.Fallback()),
		attribute.String("step_number", res.StepNumber),
		attribute.Int("order_lines", len(res.Order)),
	)
	return res, nil
}

func (e *Engine) respond(ctx context.Context, history []orderagent.Turn) (orderagent.TurnResult, Outcome, error) {
	if len(history) == 0 {
		return orderagent.TurnResult{}, Outcome{}, ErrEmptyHistory
	}

	latest := history[len(history)-1]
	turnLog := orderagent.NewTurnLog(latest.Content)

	prior := RecoverState(history, e.cfg.AgentName, e.cfg.MaxMessageHistory)
	turnLog.PriorStep = prior.StepNumber
	turnLog.PriorOrder = prior.Order
	slog.Info("ENGINE: Starting turn", "turn_id", turnLog.TurnID, "prior_step", prior.StepNumber, "prior_lines", len(prior.Order))

	shown := prior
	if e.cfg.ExtractBeforeGenerate {
		found := e.ex.Extract(latest.Content)
		if len(found) > 0 {
			shown.Order = order.Merge(e.cat, prior.Order, order.CandidatesOf(found))
			slog.Info("ENGINE: Pre-merged extracted items", "found", len(found), "lines", len(shown.Order))
		}
	}

	req := generation.Request{
		Messages:    BuildMessages(e.systemPrompt, history, shown, e.cfg.MaxMessageHistory),
		Temperature: e.cfg.Temperature,
		TopP:        e.cfg.TopP,
		MaxTokens:   e.cfg.MaxTokens,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = generation.ResponseBudget(req.Messages)
	}

	genCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := e.gen.Generate(genCtx, req)
	outcome := Outcome{Latency: time.Since(start)}
	if err != nil {
		slog.Error("ENGINE: Generation failed; using fallback", "turn_id", turnLog.TurnID, "error", err)
		outcome.GenerationErr = err
		res := e.Fallback(prior)
		turnLog.Fallback = true
		turnLog.Error = err.Error()
		turnLog.Result = &res
		e.logTurn(turnLog)
		return res, outcome, nil
	}
	turnLog.RawOutput = raw
	slog.Info("ENGINE: Generation received", "turn_id", turnLog.TurnID, "raw_len", len(raw), "latency_ms", outcome.Latency.Milliseconds())

	res, fin := e.Finalize(raw, prior)
	outcome.Malformed = fin.Malformed
	outcome.Dropped = fin.Dropped
	outcome.Repaired = fin.Repaired

	turnLog.Result = &res
	turnLog.Fallback = outcome.Fallback()
	if fin.Malformed != nil {
		turnLog.Error = fin.Malformed.Error()
	}
	turnLog.DroppedLines = rejectionLogs(fin.Dropped)
	turnLog.RepairedLines = rejectionLogs(fin.Repaired)
	e.logTurn(turnLog)

	slog.Info("ENGINE: Turn complete",
		"turn_id", turnLog.TurnID,
		"step", res.StepNumber,
		"lines", len(res.Order),
		"dropped", len(fin.Dropped),
		"fallback", outcome.Fallback(),
	)
	return res, outcome, nil
}

// Finalize validates raw generation output and sanitizes its proposed order. Malformed output
// yields the fallback result and Outcome.Malformed wraps reply.ErrMalformed.
func (e *Engine) Finalize(raw string, prior State) (orderagent.TurnResult, Outcome) {
	parsed, err := reply.Parse(raw)
	if err != nil {
		slog.Warn("ENGINE: Malformed generation output; using fallback", "error", err)
		return e.Fallback(prior), Outcome{Malformed: err}
	}

	lines, report := order.Sanitize(e.cat, parsed.Order)

	res := orderagent.TurnResult{
		Role:           generation.RoleAssistant,
		ChainOfThought: parsed.ChainOfThought,
		StepNumber:     parsed.StepNumber,
		Order:          lines,
		Response:       parsed.Response,
		Memory: orderagent.Memory{
			Agent:                     e.cfg.AgentName,
			StepNumber:                parsed.StepNumber,
			Order:                     order.Clone(lines),
			AskedRecommendationBefore: prior.AskedRecommendationBefore,
		},
	}
	return res, Outcome{Dropped: report.Dropped, Repaired: report.Repaired}
}

// Fallback is the reply used when generation fails. It keeps the prior order exactly and
// restarts the task flow at step "1".
func (e *Engine) Fallback(prior State) orderagent.TurnResult {
	lines := order.Clone(prior.Order)
	if lines == nil {
		lines = []order.Line{}
	}
	return orderagent.TurnResult{
		Role:       generation.RoleAssistant,
		StepNumber: "1",
		Order:      lines,
		Response:   FallbackResponse,
		Memory: orderagent.Memory{
			Agent:                     e.cfg.AgentName,
			StepNumber:                "1",
			Order:                     order.Clone(lines),
			AskedRecommendationBefore: prior.AskedRecommendationBefore,
		},
	}
}

func rejectionLogs(rs []order.Rejection) []orderagent.RejectedLineLog {
	if len(rs) == 0 {
		return nil
	}
	out := make([]orderagent.RejectedLineLog, 0, len(rs))
	for _, r := range rs {
		out = append(out, orderagent.RejectedLineLog{Index: r.Index, Candidate: r.Candidate, Reason: r.Err.Error()})
	}
	return out
}

// logTurn records a turn with the configured logger, handling errors gracefully
func (e *Engine) logTurn(turn orderagent.TurnLog) {
	if err := e.logger.LogTurn(turn); err != nil {
		slog.Error("ENGINE: Failed to log turn", "error", err, "turn_id", turn.TurnID)
	}
}

func (c Config) String() string {
	return fmt.Sprintf("agent=%s history=%d window=%d temperature=%.2f timeout=%s",
		c.AgentName, c.MaxMessageHistory, c.QuantityWindow, c.Temperature, c.Timeout)
}
