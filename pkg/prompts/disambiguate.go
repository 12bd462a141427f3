package prompts

import (
	"fmt"
	"strings"

	"github.com/soundprediction/go-textrdf/pkg/llm"
)

// DisambiguatePrompt defines the interface for candidate disambiguation prompts.
type DisambiguatePrompt interface {
	Choose() PromptVersion
}

// DisambiguateVersions holds all versions of disambiguation prompts.
type DisambiguateVersions struct {
	ChoosePrompt PromptVersion
}

func (d *DisambiguateVersions) Choose() PromptVersion { return d.ChoosePrompt }

// Candidate is one linking candidate presented for a forced choice.
type Candidate struct {
	Label string   `json:"label"`
	URI   string   `json:"uri"`
	Types []string `json:"types,omitempty"`
}

// choosePrompt asks for a single 1-based index into the candidate list.
func choosePrompt(context map[string]interface{}) ([]llm.Message, error) {
	name := stringParam(context, "entity_name")
	passage := stringParam(context, "passage")
	typeHint := stringParam(context, "type_hint")

	candidates, ok := context["candidates"].([]Candidate)
	if !ok || len(candidates) == 0 {
		return nil, fmt.Errorf("disambiguate prompt requires candidates")
	}

	var list strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d. %s <%s>", i+1, c.Label, c.URI)
		if len(c.Types) > 0 {
			fmt.Fprintf(&list, " (%s)", strings.Join(c.Types, ", "))
		}
		list.WriteString("\n")
	}

	system := `You disambiguate entity references. Given a passage, an entity name, and a numbered list of knowledge-base candidates, reply with the number of the single best-matching candidate. Reply with ONLY that number, nothing else.`

	var user strings.Builder
	fmt.Fprintf(&user, "PASSAGE:\n%s\n\nENTITY: %s\n", passage, name)
	if typeHint != "" {
		fmt.Fprintf(&user, "EXPECTED TYPE: %s\n", typeHint)
	}
	fmt.Fprintf(&user, "\nCANDIDATES:\n%s\nWhich candidate does the entity refer to? Answer with one number.", list.String())

	return []llm.Message{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(user.String()),
	}, nil
}

// NewDisambiguateVersions creates the disambiguation prompt versions.
func NewDisambiguateVersions() DisambiguatePrompt {
	return &DisambiguateVersions{ChoosePrompt: NewPromptVersion(choosePrompt)}
}
