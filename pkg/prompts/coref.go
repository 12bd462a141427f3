package prompts

import (
	"fmt"

	"github.com/soundprediction/go-textrdf/pkg/llm"
)

// CorefPrompt defines the interface for coreference discovery prompts.
type CorefPrompt interface {
	Rewrite() PromptVersion
}

// CorefVersions holds all versions of coreference prompts.
type CorefVersions struct {
	RewritePrompt PromptVersion
}

func (c *CorefVersions) Rewrite() PromptVersion { return c.RewritePrompt }

// rewritePrompt asks the model to replace pronouns with their antecedents
// while changing nothing else about the text.
func rewritePrompt(context map[string]interface{}) ([]llm.Message, error) {
	text := stringParam(context, "text")
	if text == "" {
		return nil, fmt.Errorf("coref prompt requires non-empty text")
	}

	system := `You resolve coreferences in text. Replace every pronoun (he, she, it, they, him, her, his, hers, its, their, them) with the full name of the entity it refers to, when that entity is named in the text. Leave pronouns you cannot resolve unchanged. Do not add, remove, or reorder any other words. Return ONLY the rewritten text.`

	user := fmt.Sprintf("Rewrite the following text with pronouns replaced by their antecedents:\n\n%s", text)

	return []llm.Message{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(user),
	}, nil
}

// NewCorefVersions creates the coreference prompt versions.
func NewCorefVersions() CorefPrompt {
	return &CorefVersions{RewritePrompt: NewPromptVersion(rewritePrompt)}
}
