package orderagent

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=0"`
	Temperature float32 `env:"TEMPERATURE,default=0.1"`
	TopP        float32 `env:"TOP_P,default=0.8"`
}

type AgentConfig struct {
	AgentName             string        `env:"AGENT_NAME,default=order_taking_agent"`
	CatalogPath           string        `env:"CATALOG_PATH"`
	BaseOllamaEndpoint    string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MaxMessageHistory     int           `env:"MAX_MESSAGE_HISTORY,default=10"`
	QuantityWindow        int           `env:"QUANTITY_WINDOW,default=20"`
	GenerationTimeout     time.Duration `env:"GENERATION_TIMEOUT,default=30s"`
	MaxRetries            uint          `env:"MAX_RETRIES,default=3"`
	ExtractBeforeGenerate bool          `env:"EXTRACT_BEFORE_GENERATE,default=false"`
	DumpTurns             bool          `env:"DUMP_TURNS,default=false"`
}

// OpenAIConfig points at any OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	Token   string `env:"OPENAI_API_KEY,required"`
	BaseURL string `env:"OPENAI_BASE_URL"`
}

// CatalogS3Config locates the catalog table in S3. An empty bucket means the embedded default.
type CatalogS3Config struct {
	Bucket string `env:"CATALOG_S3_BUCKET"`
	Key    string `env:"CATALOG_S3_KEY,default=catalog/menu.yaml"`
}

type SlackConfig struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	Channel    string `env:"SLACK_CHANNEL,default=#orders"`
}
