package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldRunID is the pipeline run ID
	FieldRunID = "run_id"

	// FieldSource is the news source name (e.g. "zawya.com")
	FieldSource = "source"

	// FieldArticleID is the article row ID being processed
	FieldArticleID = "article_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields, attached at the log site for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldCostUSD is the estimated LLM cost in USD
	FieldCostUSD = "cost_usd"

	// FieldSize is the HTTP response size in bytes
	FieldSize = "size"
)
