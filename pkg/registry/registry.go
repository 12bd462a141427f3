// Package registry tracks entities discovered across extraction windows so
// later windows can reuse the names, types, and identifiers of entities the
// earlier windows already produced.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// EntityRecord is the accumulated knowledge about one entity. The canonical
// name keeps its first-seen casing; aliases are stored lowercase and never
// include the canonical name itself.
type EntityRecord struct {
	// Name is the canonical name, as first seen.
	Name string

	// Type is the entity's type (for example a schema.org type).
	Type string

	// Aliases are alternative names, lowercased, in discovery order.
	Aliases []string

	// Properties are key facts recorded for the entity. A later value for
	// the same key wins.
	Properties map[string]string

	// FirstSeenOffset is the character offset of the first sighting.
	FirstSeenOffset int

	// FirstSeenWindow is the window ID that first mentioned the entity.
	FirstSeenWindow int

	// URI is the linked identifier, when entity linking resolved one.
	URI string
}

// Registry is an insertion-ordered store of entity records keyed by
// case-insensitive name. It is scoped to one document run and is not safe
// for concurrent use; the extraction pipeline consults it strictly between
// windows.
type Registry struct {
	records map[string]*EntityRecord
	order   []string

	// MaxContextEntities bounds how many entities ContextSummary lists.
	// Zero means no bound.
	MaxContextEntities int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		records: make(map[string]*EntityRecord),
	}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddEntity records an entity first sighted at offset in windowID. When the
// name is already known (case-insensitively, including as an alias) the
// existing record keeps its canonical name and first-seen fields; the type
// is filled in only if missing.
func (r *Registry) AddEntity(name, entityType string, offset, windowID int) *EntityRecord {
	k := key(name)
	if k == "" {
		return nil
	}
	if rec, ok := r.records[k]; ok {
		if rec.Type == "" {
			rec.Type = entityType
		}
		return rec
	}
	rec := &EntityRecord{
		Name:            strings.TrimSpace(name),
		Type:            entityType,
		Properties:      make(map[string]string),
		FirstSeenOffset: offset,
		FirstSeenWindow: windowID,
	}
	r.records[k] = rec
	r.order = append(r.order, k)
	return rec
}

// AddAlias records an alternative name for a known canonical entity. Aliases
// are stored lowercase, are idempotent, and an alias equal to the canonical
// name is skipped. The alias becomes a lookup key for ResolveAlias and
// HasEntity. Unknown canonical names are ignored.
func (r *Registry) AddAlias(canonical, alias string) {
	rec, ok := r.records[key(canonical)]
	if !ok {
		return
	}
	ak := key(alias)
	if ak == "" || ak == key(rec.Name) {
		return
	}
	for _, a := range rec.Aliases {
		if a == ak {
			return
		}
	}
	rec.Aliases = append(rec.Aliases, ak)
	if _, taken := r.records[ak]; !taken {
		r.records[ak] = rec
	}
}

// AddProperty records a property for an existing entity, overwriting any
// earlier value for the same key.
func (r *Registry) AddProperty(name, propKey, value string) {
	if rec, ok := r.records[key(name)]; ok {
		rec.Properties[propKey] = value
	}
}

// SetURI records the linked identifier for an existing entity.
func (r *Registry) SetURI(name, uri string) {
	if rec, ok := r.records[key(name)]; ok {
		rec.URI = uri
	}
}

// ResolveAlias maps any known surface form (canonical name or alias,
// case-insensitive) to the canonical name. The second return reports whether
// the form was known.
func (r *Registry) ResolveAlias(text string) (string, bool) {
	if rec, ok := r.records[key(text)]; ok {
		return rec.Name, true
	}
	return "", false
}

// HasEntity reports whether name (or a registered alias) is known.
func (r *Registry) HasEntity(name string) bool {
	_, ok := r.records[key(name)]
	return ok
}

// Entity returns the record for name or a registered alias, or nil.
func (r *Registry) Entity(name string) *EntityRecord {
	return r.records[key(name)]
}

// EntityCount returns the number of distinct entities known.
func (r *Registry) EntityCount() int {
	return len(r.order)
}

// Clear resets the registry for a new document run.
func (r *Registry) Clear() {
	r.records = make(map[string]*EntityRecord)
	r.order = nil
}

// Entities returns all records in discovery order.
func (r *Registry) Entities() []*EntityRecord {
	out := make([]*EntityRecord, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.records[k])
	}
	return out
}

// EntitiesOfType returns records whose type matches, in discovery order.
func (r *Registry) EntitiesOfType(entityType string) []*EntityRecord {
	var out []*EntityRecord
	for _, k := range r.order {
		if rec := r.records[k]; rec.Type == entityType {
			out = append(out, rec)
		}
	}
	return out
}

// LastEntityOfType returns the entity of the given type with the greatest
// first-seen offset, or nil. Used as the default-antecedent fallback.
func (r *Registry) LastEntityOfType(entityType string) *EntityRecord {
	var best *EntityRecord
	for _, k := range r.order {
		rec := r.records[k]
		if rec.Type != entityType {
			continue
		}
		if best == nil || rec.FirstSeenOffset >= best.FirstSeenOffset {
			best = rec
		}
	}
	return best
}

// ContextSummary renders the registry as a prompt fragment listing what has
// been discovered so far. Entities appear in discovery order; properties of
// each entity are sorted by key so the output is deterministic. An empty
// registry yields an empty string.
func (r *Registry) ContextSummary() string {
	if len(r.order) == 0 {
		return ""
	}

	keys := r.order
	if r.MaxContextEntities > 0 && len(keys) > r.MaxContextEntities {
		keys = keys[:r.MaxContextEntities]
	}

	var b strings.Builder
	b.WriteString("ENTITIES ALREADY DISCOVERED IN THIS DOCUMENT:\n")
	for _, k := range keys {
		rec := r.records[k]
		b.WriteString("- ")
		b.WriteString(rec.Name)
		if rec.Type != "" {
			fmt.Fprintf(&b, " (%s)", rec.Type)
		}
		if len(rec.Aliases) > 0 {
			fmt.Fprintf(&b, " [also called: %s]", strings.Join(rec.Aliases, ", "))
		}
		if rec.URI != "" {
			fmt.Fprintf(&b, " [@id: %s]", rec.URI)
		}
		if len(rec.Properties) > 0 {
			propKeys := make([]string, 0, len(rec.Properties))
			for pk := range rec.Properties {
				propKeys = append(propKeys, pk)
			}
			sort.Strings(propKeys)
			for _, pk := range propKeys {
				fmt.Fprintf(&b, " [%s: %s]", pk, rec.Properties[pk])
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\nWhen any of these entities appear again, reuse the exact same name and @id. Do not invent a new identity for an entity listed above.\n")
	return b.String()
}
