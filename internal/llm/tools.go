package llm

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/nbenliogludev/go-recipe-agent/internal/tools"
)

// FunctionTools declares specs to the model under their qualified names on
// server.
func FunctionTools(server string, specs []tools.Spec) []openai.Tool {
	out := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tools.Qualify(server, s.Op),
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}
