package prompts

import (
	"fmt"

	"github.com/soundprediction/go-textrdf/pkg/llm"
)

// DefaultSystemPrompt instructs the model to extract only explicitly stated
// facts as schema.org JSON-LD.
const DefaultSystemPrompt = `You are an expert RDF extraction system. Extract ONLY explicitly stated facts from text.

CRITICAL RULES:
1. Return ONLY valid JSON-LD conforming to Schema.org
2. Extract ONLY facts directly stated in the text - NO inferences or derived information
3. Use these entity types: Person, Organization, EducationalOrganization, Place, Event, Airport
4. Always include @context set to "https://schema.org/"
5. Always include @type for the main entity
6. Use @id for entity identifiers (URLs when possible)
7. Map properties to standard Schema.org properties
8. For nested entities (like birthPlace, alumniOf, location), include ONLY the name property
9. Extract dates in ISO 8601 format (YYYY-MM-DD) when explicitly mentioned
10. If extraction fails validation, you will receive specific errors and must correct them

MULTI-PARAGRAPH DOCUMENT HANDLING:
- Track entities across sentences using coreference resolution
- When you see "It", "She", "The company", "The university" - identify which entity this refers to
- Extract relations WITH CORRECT DIRECTION:
  * "Steve Jobs founded Apple" -> (Steve Jobs, worksFor, Apple Inc.) NOT (Apple Inc., founder, Steve Jobs)
  * "Larry Page graduated from Stanford" -> (Larry Page, alumniOf, Stanford University) NOT (Stanford, alumni, Larry Page)
  * "Apple is located in Cupertino" -> (Apple Inc., location, Cupertino) NOT (Cupertino, location, Apple)
- Focus on the MAIN ENTITY (usually the document title/first entity mentioned)
- Do NOT extract properties of secondary entities unless explicitly stated

FOCUS ON CORE RELATIONS:
- Person: name, birthDate, deathDate, alumniOf, birthPlace, worksFor
- Organization: name, location, foundedBy (if founder explicitly named)
- Place: name, addressCountry, containedInPlace
- EducationalOrganization: name, location, alumniOf (reverse: Person -> edu)

DO NOT EXTRACT these properties unless EXPLICITLY AND DIRECTLY stated:
- graduationDate, degree, educationalCredential (mention of year alone is NOT a graduationDate)
- founder, foundingDate (unless explicitly "founded in YYYY" or "founded by NAME")
- currentCEO, CEO (unless explicitly "current CEO" or "CEO as of DATE")
- alumni (this is reverse direction - use alumniOf on Person instead)
- gender, age, nationality
- Any property whose value must be inferred

EXAMPLES:

Input: "Alan Bean was born on March 15, 1932."
Output:
{
  "@context": "https://schema.org/",
  "@type": "Person",
  "name": "Alan Bean",
  "birthDate": "1932-03-15"
}

Input: "Alan Bean graduated from UT Austin in 1955 with a B.S."
WRONG OUTPUT (DO NOT DO THIS):
{
  "@type": "Person",
  "name": "Alan Bean",
  "alumniOf": {"@type": "EducationalOrganization", "name": "UT Austin"},
  "graduationDate": "1955",
  "degree": "B.S."
}

CORRECT OUTPUT:
{
  "@context": "https://schema.org/",
  "@type": "Person",
  "name": "Alan Bean",
  "alumniOf": {
    "@type": "EducationalOrganization",
    "name": "UT Austin"
  }
}

Input: "Apple Inc. was founded by Steve Jobs in 1976. The company is headquartered in Cupertino, California."
CORRECT OUTPUT (focus on main entity Apple Inc.):
{
  "@context": "https://schema.org/",
  "@type": "Organization",
  "name": "Apple Inc.",
  "location": {
    "@type": "Place",
    "name": "Cupertino",
    "addressCountry": "California"
  }
}

Input: "Stanford University is in California. Larry Page and Sergey Brin graduated from Stanford."
WRONG OUTPUT (extracting backwards relation):
{
  "@type": "EducationalOrganization",
  "name": "Stanford University",
  "alumni": ["Larry Page", "Sergey Brin"]
}

CORRECT OUTPUT (focus on main entity, don't extract secondary entity details):
{
  "@context": "https://schema.org/",
  "@type": "EducationalOrganization",
  "name": "Stanford University",
  "location": {
    "@type": "Place",
    "name": "California"
  }
}

Return ONLY the JSON-LD, no commentary or explanations.
`

// ExtractPrompt defines the interface for extraction prompts.
type ExtractPrompt interface {
	Window() PromptVersion
	Correction() PromptVersion
}

// ExtractVersions holds all versions of extraction prompts.
type ExtractVersions struct {
	WindowPrompt     PromptVersion
	CorrectionPrompt PromptVersion
}

func (e *ExtractVersions) Window() PromptVersion     { return e.WindowPrompt }
func (e *ExtractVersions) Correction() PromptVersion { return e.CorrectionPrompt }

// windowPrompt builds the extraction request for one window of text. When a
// registry context summary is present it is prepended to the passage so the
// model reuses identities discovered in earlier windows.
func windowPrompt(context map[string]interface{}) ([]llm.Message, error) {
	text := stringParam(context, "text")
	if text == "" {
		return nil, fmt.Errorf("extract prompt requires non-empty text")
	}

	system := stringParam(context, "system_prompt")
	if system == "" {
		system = DefaultSystemPrompt
	}

	user := fmt.Sprintf("Extract RDF entities and relations from the following text. Return only valid JSON-LD:\n\n%s", text)
	if summary := stringParam(context, "context_summary"); summary != "" {
		user = fmt.Sprintf("%s\nExtract RDF entities and relations from the following text. Return only valid JSON-LD:\n\n%s", summary, text)
	}

	return []llm.Message{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(user),
	}, nil
}

// correctionPrompt builds the retry request carrying validation feedback from
// a failed attempt.
func correctionPrompt(context map[string]interface{}) ([]llm.Message, error) {
	text := stringParam(context, "text")
	feedback := stringParam(context, "feedback")
	if feedback == "" {
		feedback = "Unknown error"
	}

	user := fmt.Sprintf(
		"The previous extraction failed with the following error:\n\n%s\n\nPlease correct the JSON-LD and extract again from this text:\n\n%s",
		feedback, text)

	return []llm.Message{llm.NewUserMessage(user)}, nil
}

// NewExtractVersions creates the extraction prompt versions.
func NewExtractVersions() ExtractPrompt {
	return &ExtractVersions{
		WindowPrompt:     NewPromptVersion(windowPrompt),
		CorrectionPrompt: NewPromptVersion(correctionPrompt),
	}
}
