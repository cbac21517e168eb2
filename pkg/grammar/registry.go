package grammar

import (
	"sort"
)

// PlaintextID is the language used when nothing else applies. It has no grammar.
const PlaintextID = "plaintext"

// Language ties a base-language id to its root scope and the grammar resource
// that implements it. File is looked up in an external grammar directory first;
// Alias names the built-in lexer used otherwise.
type Language struct {
	ID    string `yaml:"id" hcl:"id,label"`
	Scope string `yaml:"scope" hcl:"scope,attr"`
	File  string `yaml:"file,omitempty" hcl:"file,optional"`
	Alias string `yaml:"alias,omitempty" hcl:"alias,optional"`
}

func (l Language) HasGrammar() bool {
	return l.File != "" || l.Alias != ""
}

// DefaultLanguages is the built-in language table.
func DefaultLanguages() []Language {
	return []Language{
		{ID: "html", Scope: "text.html.basic", File: "html.xml", Alias: "html"},
		{ID: "yaml", Scope: "source.yaml", File: "yaml.xml", Alias: "yaml"},
		{ID: "json", Scope: "source.json", File: "json.xml", Alias: "json"},
		{ID: "markdown", Scope: "text.html.markdown", File: "markdown.xml", Alias: "markdown"},
		{ID: "shellscript", Scope: "source.shell", File: "bash.xml", Alias: "bash"},
		{ID: "sql", Scope: "source.sql", File: "sql.xml", Alias: "sql"},
		{ID: PlaintextID, Scope: "text.plain"},
	}
}

// Registry is the static id to scope to grammar table. It is read only after construction.
type Registry struct {
	languages []Language
	byID      map[string]Language
}

// NewRegistry builds a registry from langs. Later entries replace earlier ones
// with the same id, keeping the position of the first.
func NewRegistry(langs ...Language) *Registry {
	r := &Registry{byID: make(map[string]Language, len(langs))}
	for _, l := range langs {
		if _, ok := r.byID[l.ID]; ok {
			for i := range r.languages {
				if r.languages[i].ID == l.ID {
					r.languages[i] = l
				}
			}
		} else {
			r.languages = append(r.languages, l)
		}
		r.byID[l.ID] = l
	}
	return r
}

func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultLanguages()...)
}

func (r *Registry) Lookup(id string) (Language, bool) {
	l, ok := r.byID[id]
	return l, ok
}

func (r *Registry) IsSupported(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Scope returns the root scope for id, or "" when id is unknown.
func (r *Registry) Scope(id string) string {
	return r.byID[id].Scope
}

// GrammarFile returns the grammar resource name for id, or "" when there is none.
func (r *Registry) GrammarFile(id string) string {
	return r.byID[id].File
}

// IDs lists the known ids in table order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.languages))
	for _, l := range r.languages {
		out = append(out, l.ID)
	}
	return out
}

// SortedIDs lists the known ids alphabetically.
func (r *Registry) SortedIDs() []string {
	out := r.IDs()
	sort.Strings(out)
	return out
}
