package textrdf

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// Provenance records where and how a document's content was derived.
type Provenance struct {
	RunID      string  `json:"run_id,omitempty"`
	WindowID   int     `json:"window_id"`
	SpanStart  int     `json:"span_start"`
	SpanEnd    int     `json:"span_end"`
	Method     string  `json:"method,omitempty"`
	SourceText string  `json:"source_text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Document is a decoded JSON-LD document, optionally annotated with
// provenance.
type Document struct {
	Data       map[string]any
	Provenance *Provenance
}

// FromJSON parses a JSON-LD document. Malformed JSON is passed through a
// repair step before giving up, since model output frequently has trailing
// commas or unterminated strings.
func FromJSON(s string) (*Document, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(s)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if err := json.Unmarshal([]byte(repaired), &data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}
	return &Document{Data: data}, nil
}

// ExtractJSON pulls the JSON payload out of a model reply, handling code
// fences and surrounding commentary.
func ExtractJSON(response string) string {
	if start := strings.Index(response, "```json"); start >= 0 {
		after := start + len("```json")
		if end := strings.Index(response[after:], "```"); end >= 0 {
			return strings.TrimSpace(response[after : after+end])
		}
	}
	if start := strings.Index(response, "{"); start >= 0 {
		if end := strings.LastIndex(response, "}"); end > start {
			return strings.TrimSpace(response[start : end+1])
		}
	}
	return strings.TrimSpace(response)
}

// Type returns the document's @type, or "".
func (d *Document) Type() string {
	t, _ := d.Data["@type"].(string)
	return t
}

// Name returns the document's name property, or "".
func (d *Document) Name() string {
	n, _ := d.Data["name"].(string)
	return n
}

// ID returns the document's @id, or "".
func (d *Document) ID() string {
	id, _ := d.Data["@id"].(string)
	return id
}

// Context returns the document's @context value.
func (d *Document) Context() any {
	return d.Data["@context"]
}

// EntityNames returns every name property in the document, including nested
// entities, sorted and deduplicated.
func (d *Document) EntityNames() []string {
	var names []string
	collectNames(d.Data, &names)
	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i == 0 || names[i-1] != n {
			out = append(out, n)
		}
	}
	return out
}

func collectNames(value any, names *[]string) {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["name"].(string); ok && name != "" {
			*names = append(*names, name)
		}
		for _, child := range v {
			collectNames(child, names)
		}
	case []any:
		for _, child := range v {
			collectNames(child, names)
		}
	}
}

// SetURI sets @id on every entity whose name matches, including nested
// entities.
func (d *Document) SetURI(entityName, uri string) {
	setURI(d.Data, entityName, uri)
}

func setURI(value any, entityName, uri string) {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["name"].(string); ok && name == entityName {
			v["@id"] = uri
			return
		}
		for _, child := range v {
			setURI(child, entityName, uri)
		}
	case []any:
		for _, child := range v {
			setURI(child, entityName, uri)
		}
	}
}

// MarshalJSON renders the document's data, with provenance under a
// _provenance key when present.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.Provenance == nil {
		return json.Marshal(d.Data)
	}
	out := make(map[string]any, len(d.Data)+1)
	for k, v := range d.Data {
		out[k] = v
	}
	out["_provenance"] = d.Provenance
	return json.Marshal(out)
}

// ToJSON renders the document as an indented JSON-LD string.
func (d *Document) ToJSON() (string, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return string(b), nil
}

// Merge combines per-window documents into one. The first document's
// @context is authoritative; a single node is returned unwrapped, multiple
// nodes are collected under @graph. No property-level deduplication is
// performed.
func Merge(docs []*Document) (*Document, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyMerge
	}

	context := docs[0].Context()

	var graph []any
	for _, doc := range docs {
		if nodes, ok := doc.Data["@graph"].([]any); ok {
			graph = append(graph, nodes...)
			continue
		}
		node := make(map[string]any, len(doc.Data))
		for k, v := range doc.Data {
			if k != "@context" {
				node[k] = v
			}
		}
		if len(node) > 0 {
			graph = append(graph, node)
		}
	}

	if len(graph) == 0 {
		return nil, ErrEmptyMerge
	}

	if len(graph) == 1 {
		data := map[string]any{"@context": context}
		for k, v := range graph[0].(map[string]any) {
			data[k] = v
		}
		return &Document{Data: data}, nil
	}

	return &Document{Data: map[string]any{
		"@context": context,
		"@graph":   graph,
	}}, nil
}
