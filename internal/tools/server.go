package tools

import (
	"context"
	"encoding/json"
)

// Result is the outcome of one tool call as seen by the model.
type Result struct {
	Text        string
	ImageBase64 string
	ImageMIME   string
	IsError     bool
}

// Server executes browser operations by their bare name (no qualifier).
type Server interface {
	Call(ctx context.Context, op string, args json.RawMessage) (Result, error)
	Close() error
}

// ErrorResult builds an error result the model can read and react to.
func ErrorResult(msg string) Result {
	return Result{Text: msg, IsError: true}
}
