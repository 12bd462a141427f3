package dto

// ExtractRequest represents a request to extract a knowledge graph from text
type ExtractRequest struct {
	Text         string `json:"text" binding:"required"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// ExtractResponse represents a successful extraction result
type ExtractResponse struct {
	Success  bool                   `json:"success"`
	Document map[string]interface{} `json:"document"`
	Entities []string               `json:"entities,omitempty"`
}

// ValidateRequest represents a request to validate a JSON-LD document
type ValidateRequest struct {
	Document map[string]interface{} `json:"document" binding:"required"`
}

// ValidateResponse represents the result of document validation
type ValidateResponse struct {
	Valid      bool     `json:"valid"`
	Confidence float64  `json:"confidence"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
