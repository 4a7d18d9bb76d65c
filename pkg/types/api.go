package types

// InferRequest is the payload accepted by POST /infer.
type InferRequest struct {
	// Absolute path to the primary GGUF model file.
	// example: /models/llava-v1.6-7b-q4.gguf
	ModelPath string `json:"model_path" example:"/models/llava-v1.6-7b-q4.gguf"`
	// Optional path to the multimodal projector file (mmproj).
	// example: /models/mmproj-llava-v1.6-7b-f16.gguf
	ProjectorPath string `json:"projector_path,omitempty" example:"/models/mmproj-llava-v1.6-7b-f16.gguf"`
	// Inline base64-encoded image. Mutually exclusive with image_path.
	ImageBase64 string `json:"image_base64,omitempty"`
	// Path to an image file on disk. Mutually exclusive with image_base64.
	// example: /tmp/screenshot.png
	ImagePath string `json:"image_path,omitempty" example:"/tmp/screenshot.png"`
	// Optional user prompt; a generic description prompt is used when empty.
	// example: Describe the content of this screenshot.
	Prompt string `json:"prompt,omitempty" example:"Describe the content of this screenshot."`
	// Optional system prompt override.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Maximum number of new tokens to generate.
	// example: 512
	MaxTokens int `json:"max_tokens,omitempty" example:"512"`
	// Sampling temperature.
	// example: 0.2
	Temperature float32 `json:"temperature,omitempty" example:"0.2"`
	// Context window size. Omitted means server default.
	// example: 4096
	ContextSize *int `json:"context_size,omitempty" example:"4096"`
	// Number of CPU threads. Omitted means server default.
	Threads *int `json:"threads,omitempty" example:"8"`
	// Layers to offload to the GPU. Omitted means auto.
	GPULayers *int `json:"gpu_layers,omitempty" example:"99"`
	// Logical batch size. Omitted means server default.
	BatchSize *int `json:"batch_size,omitempty" example:"512"`
	// Physical (micro) batch size. Omitted means server default.
	MicroBatchSize *int `json:"micro_batch_size,omitempty" example:"128"`
}

// InferResponse wraps the model's answer returned by POST /infer.
type InferResponse struct {
	// Generated text for the first completion choice.
	Text string `json:"text"`
}

// StatusResponse is a read-only projection of the supervisor state for GET /status.
type StatusResponse struct {
	// Lifecycle state: stopped, starting, healthy or crashed.
	// example: healthy
	State string `json:"state" example:"healthy"`
	// Process ID of the managed llama-server (0 when stopped).
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Loopback TCP port of the managed llama-server (0 when stopped).
	// example: 30781
	Port int `json:"port,omitempty" example:"30781"`
	// Model file served by the running process, if any.
	ModelPath string `json:"model_path,omitempty"`
	// Unix seconds of the last completed inference request.
	LastUsed int64 `json:"last_used_unix,omitempty" example:"1700000000"`
}

// Model is a GGUF file discovered in the configured models directory.
type Model struct {
	// Filename including extension.
	// example: llava-v1.6-7b-q4.gguf
	ID string `json:"id" example:"llava-v1.6-7b-q4.gguf"`
	// Absolute path on disk.
	Path string `json:"path"`
	// True when the file is a multimodal projector (mmproj) rather than a model.
	Projector bool `json:"projector,omitempty"`
	// File size in bytes.
	SizeBytes int64 `json:"size_bytes,omitempty"`
}

// ModelsResponse wraps the /models listing.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model_path is required
	Error string `json:"error" example:"model_path is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
