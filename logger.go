package orderagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TurnLogger records one audit entry per processed turn.
type TurnLogger interface {
	LogTurn(turn TurnLog) error
}

// NewTurnLogFilePath returns a file path based on a cleaned up model name or id to make it easier to identify logs produced with various models.
func NewTurnLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// TurnLog is the audit record of a single turn
type TurnLog struct {
	TurnID        string            `json:"turn_id"`
	Timestamp     time.Time         `json:"timestamp"`
	UserMessage   string            `json:"user_message"`
	PriorStep     string            `json:"prior_step"`
	PriorOrder    any               `json:"prior_order"`
	RawOutput     string            `json:"raw_output,omitempty"`
	Result        *TurnResult       `json:"result,omitempty"`
	Fallback      bool              `json:"fallback"`
	DroppedLines  []RejectedLineLog `json:"dropped_lines,omitempty"`
	RepairedLines []RejectedLineLog `json:"repaired_lines,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// RejectedLineLog describes an order line the sanitizer removed or repaired
type RejectedLineLog struct {
	Index     int    `json:"index"`
	Candidate string `json:"candidate"`
	Reason    string `json:"reason"`
}

// NewTurnLog starts a log entry with a fresh turn id.
func NewTurnLog(userMessage string) TurnLog {
	return TurnLog{
		TurnID:      uuid.NewString(),
		Timestamp:   time.Now(),
		UserMessage: userMessage,
	}
}

// FileTurnLogger logs to a file, accumulating turns and flushing at the end
type FileTurnLogger struct {
	turns  []TurnLog
	writer io.Writer
}

func NewFileTurnLogger(writer io.Writer) *FileTurnLogger {
	return &FileTurnLogger{
		turns:  make([]TurnLog, 0),
		writer: writer,
	}
}

// LogTurn buffers the turn (does not flush immediately)
func (l *FileTurnLogger) LogTurn(turn TurnLog) error {
	l.turns = append(l.turns, turn)
	return nil
}

// Flush writes all accumulated turns to the writer
func (l *FileTurnLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"conversation": map[string]any{
			"timestamp": time.Now(),
			"turns":     l.turns,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal turn log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write turn log: %w", err)
	}

	l.turns = l.turns[:0]
	return nil
}

// NoOpTurnLogger discards all log entries
type NoOpTurnLogger struct{}

func NewNoOpTurnLogger() *NoOpTurnLogger {
	return &NoOpTurnLogger{}
}

func (nop *NoOpTurnLogger) LogTurn(turn TurnLog) error {
	return nil
}

// StdoutTurnLogger logs each turn as a JSON line (for Lambda/CloudWatch)
type StdoutTurnLogger struct {
	w io.Writer
}

func NewStdoutTurnLogger() *StdoutTurnLogger {
	return &StdoutTurnLogger{w: os.Stdout}
}

// LogTurn writes the turn as a single JSON line
func (l *StdoutTurnLogger) LogTurn(turn TurnLog) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.w, string(data))
	return err
}
