package tools

import "fmt"

// FailureKind classifies why a tool call did not produce a payload.
// An empty kind means the call succeeded.
type FailureKind string

const (
	FailInvalidArguments FailureKind = "InvalidArguments"
	FailPathOutsideRoot  FailureKind = "PathOutsideRoot"
	FailNotFound         FailureKind = "NotFound"
	FailNotAFile         FailureKind = "NotAFile"
	FailTimeout          FailureKind = "Timeout"
	FailCancelled        FailureKind = "Cancelled"
	FailUnknownTool      FailureKind = "UnknownTool"
)

// Outcome is the normalized result of one tool execution. Execution
// never surfaces a Go error to the agent loop: every failure is
// captured here as data and fed back into the conversation so the
// model can react to it.
type Outcome struct {
	// Payload is the tool-specific success payload. Structured
	// payloads (shell output, directory listings) are JSON text.
	Payload string `json:"payload,omitempty"`

	// Kind is set when the call failed.
	Kind FailureKind `json:"kind,omitempty"`

	// Message describes the failure in model-readable form.
	Message string `json:"message,omitempty"`
}

// Ok builds a success outcome carrying payload.
func Ok(payload string) Outcome {
	return Outcome{Payload: payload}
}

// Failf builds a failure outcome of the given kind.
func Failf(kind FailureKind, format string, args ...any) Outcome {
	return Outcome{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool { return o.Kind != "" }

// Text renders the outcome as the text fed back to the model.
func (o Outcome) Text() string {
	if o.Failed() {
		return fmt.Sprintf("error (%s): %s", o.Kind, o.Message)
	}
	return o.Payload
}
