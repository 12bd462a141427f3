// Package validation checks extracted JSON-LD documents against schema.org
// shape rules before they are accepted, and renders violations as feedback
// the extraction retry loop can send back to the model.
package validation

import (
	"fmt"
	"strings"
)

// Severity grades a violation.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule requires properties on entities of a given type. An empty EntityType
// applies the rule to every entity.
type Rule struct {
	Name               string
	Description        string
	EntityType         string
	RequiredProperties []string
}

// Violation is one failed check.
type Violation struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Property string   `json:"property,omitempty"`

	// ConfidenceImpact is how much this violation reduces the overall
	// confidence, in [-1,0].
	ConfidenceImpact float64 `json:"confidence_impact"`
}

// Result is the outcome of validating one document.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
	Confidence float64     `json:"confidence"`
}

// Errors returns only the error-severity violations.
func (r *Result) Errors() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}

// Config controls validation outcomes.
type Config struct {
	// MinConfidence is the lowest confidence a document may score and
	// still be considered valid.
	MinConfidence float64
}

// DefaultConfig returns the standard validation configuration.
func DefaultConfig() Config {
	return Config{MinConfidence: 0.7}
}

// Validator applies shape rules to JSON-LD documents.
type Validator struct {
	rules  []Rule
	config Config
}

// New creates a Validator with no rules.
func New(config Config) *Validator {
	return &Validator{config: config}
}

// NewDefault creates a Validator with the standard schema.org rules.
func NewDefault() *Validator {
	v := New(DefaultConfig())
	for _, entityType := range []string{"Person", "Organization", "Place", "Event"} {
		v.AddRule(Rule{
			Name:               strings.ToLower(entityType) + "_requires_name",
			Description:        fmt.Sprintf("A %s entity must have a 'name' property", entityType),
			EntityType:         entityType,
			RequiredProperties: []string{"name"},
		})
	}
	return v
}

// AddRule appends a rule.
func (v *Validator) AddRule(rule Rule) {
	v.rules = append(v.rules, rule)
}

// dateProperties are checked for ISO 8601 (YYYY-MM-DD) format.
var dateProperties = []string{"birthDate", "deathDate", "datePublished", "dateCreated"}

// Validate checks a decoded JSON-LD document. Documents wrapping multiple
// nodes in @graph have the shape rules applied to every node.
func (v *Validator) Validate(doc map[string]any) *Result {
	res := &Result{Confidence: 1.0}

	if ctx, ok := doc["@context"]; !ok || ctx == nil {
		res.Violations = append(res.Violations, Violation{
			Rule:             "basic_structure",
			Message:          "Missing or null @context field",
			Severity:         SeverityError,
			ConfidenceImpact: -0.5,
		})
		res.Confidence = 0.5
		return res
	}

	if graph, ok := doc["@graph"].([]any); ok {
		for _, node := range graph {
			if m, ok := node.(map[string]any); ok {
				v.checkNode(m, res)
			}
		}
	} else {
		if _, ok := doc["@type"]; !ok {
			res.Violations = append(res.Violations, Violation{
				Rule:             "basic_structure",
				Message:          "Missing @type field",
				Severity:         SeverityError,
				ConfidenceImpact: -0.5,
			})
			res.Confidence = 0.5
			return res
		}
		v.checkNode(doc, res)
	}

	for _, viol := range res.Violations {
		res.Confidence += viol.ConfidenceImpact
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}

	res.Valid = res.Confidence >= v.config.MinConfidence
	for _, viol := range res.Violations {
		if viol.Severity == SeverityError {
			res.Valid = false
			break
		}
	}
	return res
}

func (v *Validator) checkNode(node map[string]any, res *Result) {
	entityType, _ := node["@type"].(string)

	for _, rule := range v.rules {
		if rule.EntityType != "" && rule.EntityType != entityType {
			continue
		}
		for _, prop := range rule.RequiredProperties {
			if val, ok := node[prop]; !ok || val == nil {
				res.Violations = append(res.Violations, Violation{
					Rule:             rule.Name,
					Message:          fmt.Sprintf("Missing required property '%s': %s", prop, rule.Description),
					Severity:         SeverityError,
					Property:         prop,
					ConfidenceImpact: -0.2,
				})
			}
		}
	}

	for _, prop := range dateProperties {
		val, ok := node[prop]
		if !ok {
			continue
		}
		if s, ok := val.(string); !ok || !isValidDate(s) {
			res.Violations = append(res.Violations, Violation{
				Rule:             "valid_date_format",
				Message:          fmt.Sprintf("%s must be in ISO 8601 format (YYYY-MM-DD)", prop),
				Severity:         SeverityWarning,
				Property:         prop,
				ConfidenceImpact: -0.05,
			})
		}
	}

	if id, ok := node["@id"].(string); ok && !isValidURI(id) {
		res.Violations = append(res.Violations, Violation{
			Rule:             "valid_uri",
			Message:          "@id must be a valid URI",
			Severity:         SeverityWarning,
			Property:         "@id",
			ConfidenceImpact: -0.1,
		})
	}
}

func isValidDate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isValidURI(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FeedbackMessage renders the violations as correction guidance for the
// extraction retry loop.
func FeedbackMessage(res *Result) string {
	if res == nil || len(res.Violations) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Schema Validation Error:\n")
	for _, v := range res.Violations {
		fmt.Fprintf(&b, "- [%s] %s\n", v.Severity, v.Message)
	}
	b.WriteString("\nPlease ensure:\n")
	b.WriteString("- @context is set to \"https://schema.org/\"\n")
	b.WriteString("- @type is present and valid (Person, Organization, Place, Event, etc.)\n")
	b.WriteString("- All required properties for the entity type are included\n")
	b.WriteString("- Property names match Schema.org vocabulary")
	return b.String()
}
