package answer

import (
	"github.com/tmc/langchaingo/prompts"
)

const groundedTemplate = `You are a helpful assistant for the {{.app_name}} system.
Answer the question based ONLY on the following context from the uploaded documents.
If the question cannot be answered from the context, say:
"I don't have that information in the uploaded {{.app_id}} documents."

Context:
{{.context}}

Question: {{.question}}

Answer:`

var groundedPrompt = prompts.NewPromptTemplate(
	groundedTemplate,
	[]string{"app_name", "app_id", "context", "question"},
)

// buildPrompt renders the grounded prompt. An empty app name falls back to
// the app id.
func buildPrompt(in Input) (string, error) {
	name := in.AppName
	if name == "" {
		name = in.AppID
	}
	return groundedPrompt.Format(map[string]any{
		"app_name": name,
		"app_id":   in.AppID,
		"context":  in.Context(),
		"question": in.Question,
	})
}
