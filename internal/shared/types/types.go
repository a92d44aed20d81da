package types

// Category groups service providers by domain.
type Category string

const (
	CategoryFilesystem Category = "filesystem"
	CategoryStorage    Category = "storage"
	CategorySystem     Category = "system"
)

// Service describes a provider and the tools it exposes.
type Service struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities"`
	Tools        []Tool   `json:"tools"`
}

// Tool is a single operation exposed by a service.
type Tool struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns"`
}

// Parameter describes one tool parameter.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Result is the uniform outcome of a tool execution.
type Result struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *string                `json:"error,omitempty"`
}

// Success builds a successful result.
func Success(data map[string]interface{}) *Result {
	return &Result{Success: true, Data: data}
}

// Failure builds a failed result with a message.
func Failure(message string) *Result {
	return &Result{Success: false, Error: &message}
}
