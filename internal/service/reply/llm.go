package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/bikebot/internal/logging"
)

// DefaultSystemPrompt keeps model answers in the support assistant's voice.
const DefaultSystemPrompt = "You are BikeBot, the customer service assistant of a bicycle service brand. " +
	"Help with repairs, warranties, service center locations and maintenance appointments. " +
	"Answer in one or two short, friendly sentences and ask for the detail you need next."

// LLM answers prompts with a chat model behind an eino chain.
type LLM struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	system string
}

// NewLLM compiles the prompt chain for chatModel.
func NewLLM(ctx context.Context, chatModel model.ChatModel, systemPrompt string) (*LLM, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	return &LLM{chain: runnable, system: systemPrompt}, nil
}

// Reply implements Source.
func (l *LLM) Reply(ctx context.Context, query string) (string, error) {
	resp, err := l.chain.Invoke(ctx, map[string]any{
		"system": l.system,
		"query":  query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run reply chain: %w", err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	logger := logging.Component("reply")
	logger.Debug().Int("length", len(text)).Msg("generated model reply")
	return text, nil
}
