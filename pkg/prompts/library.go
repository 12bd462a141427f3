// Package prompts holds the versioned prompt templates used by extraction,
// coreference discovery, and entity disambiguation.
package prompts

// Library defines the interface for the complete prompt library.
type Library interface {
	Extract() ExtractPrompt
	Disambiguate() DisambiguatePrompt
	Coref() CorefPrompt
}

// LibraryImpl implements the Library interface.
type LibraryImpl struct {
	extract      ExtractPrompt
	disambiguate DisambiguatePrompt
	coref        CorefPrompt
}

func (l *LibraryImpl) Extract() ExtractPrompt           { return l.extract }
func (l *LibraryImpl) Disambiguate() DisambiguatePrompt { return l.disambiguate }
func (l *LibraryImpl) Coref() CorefPrompt               { return l.coref }

// NewLibrary creates a new prompt library instance.
func NewLibrary() Library {
	return &LibraryImpl{
		extract:      NewExtractVersions(),
		disambiguate: NewDisambiguateVersions(),
		coref:        NewCorefVersions(),
	}
}

// DefaultLibrary is the default prompt library instance.
var DefaultLibrary = NewLibrary()
