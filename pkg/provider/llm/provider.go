// Package llm defines the reasoning backend interface. The state machine
// talks to the backend through a single bounded request/response call;
// providers that stream internally drain the stream and surface one
// completed response.
package llm

import "context"

// Message roles. The backend protocol uses plain strings so providers can
// map them onto their own role enums.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn sent to the backend.
type Message struct {
	Role    string
	Content string
}

// Request carries one completion call: the conversation so far plus
// generation parameters.
type Request struct {
	// SystemPrompt is the persona/instruction turn. Sent first when non-empty.
	SystemPrompt string

	// Messages is the ordered conversation history, oldest first.
	Messages []Message

	// Temperature, when non-zero, overrides the provider default.
	Temperature float64

	// MaxTokens, when positive, caps the completion length.
	MaxTokens int
}

// Response is the backend's completed reply.
type Response struct {
	// Content is the full response text, mode markers included.
	Content string

	// PromptTokens and CompletionTokens report usage when the provider
	// exposes it; zero otherwise.
	PromptTokens     int
	CompletionTokens int
}

// Provider is the reasoning backend. Complete must honour ctx cancellation
// and deadlines; the caller bounds every call with a timeout.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// VisionDescriber is an optional capability for providers that can describe
// an image. The SEE action uses it for webcam scene description.
type VisionDescriber interface {
	DescribeImage(ctx context.Context, prompt string, imageJPEG []byte) (string, error)
}
