package provider

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"notepilot/model"
)

// normalizeRole maps roles a backend does not know to user. Tool results are
// fed back as user turns.
func normalizeRole(role string) string {
	switch role {
	case model.RoleSystem, model.RoleUser, model.RoleAssistant:
		return role
	default:
		return model.RoleUser
	}
}

// mergeTurns joins consecutive non-system messages of the same role, for
// backends that expect strictly alternating turns.
func mergeTurns(messages []model.Message) []model.Message {
	merged := make([]model.Message, 0, len(messages))
	for _, msg := range messages {
		msg.Role = normalizeRole(msg.Role)
		if n := len(merged); n > 0 && msg.Role != model.RoleSystem && merged[n-1].Role == msg.Role {
			merged[n-1].Content += "\n\n" + msg.Content
			continue
		}
		merged = append(merged, msg)
	}
	return merged
}

// ConvertToOllamaMessages converts messages to Ollama api.Message.
// Timestamps are not sent.
func ConvertToOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		result[i] = api.Message{
			Role:    normalizeRole(msg.Role),
			Content: msg.Content,
		}
	}
	return result
}

// ConvertToOpenAIMessages converts messages to OpenAI chat format.
func ConvertToOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch normalizeRole(msg.Role) {
		case model.RoleSystem:
			result[i] = openai.SystemMessage(msg.Content)
		case model.RoleAssistant:
			result[i] = openai.AssistantMessage(msg.Content)
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}
	return result
}

// convertToAnthropicMessages splits out system prompts, which Anthropic
// takes as a separate parameter.
func convertToAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range mergeTurns(messages) {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})
		case model.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return result, systemBlocks
}

// convertToGeminiContents returns the conversation and the combined system
// instruction, nil when there is none.
func convertToGeminiContents(messages []model.Message) ([]*genai.Content, *genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range mergeTurns(messages) {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
}
