package llm

// generateRequest is the body of POST /api/generate.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`

	EvalCount       int   `json:"eval_count,omitempty"`
	TotalDurationNs int64 `json:"total_duration,omitempty"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo represents a model installed on the server
type ModelInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Size  int64  `json:"size"`
}
