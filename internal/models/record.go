// Package models defines the data structures threaded through the document pipeline.
package models

import "strings"

// Label is the semantic class assigned to a term by classification.
type Label string

// Labels recognized by classification. An empty label means the term is unclassified.
const (
	LabelUnclassified Label = ""
	LabelPerson       Label = "person"
	LabelPlace        Label = "place"
	LabelOrganization Label = "organization"
	LabelTerm         Label = "term"
)

// ParseLabel maps a classifier answer ("PERSON", "Place", "gpe", ...) onto a Label.
// Unknown answers report false.
func ParseLabel(s string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "person":
		return LabelPerson, true
	case "place", "gpe", "location":
		return LabelPlace, true
	case "organization", "organisation", "org":
		return LabelOrganization, true
	case "term":
		return LabelTerm, true
	default:
		return LabelUnclassified, false
	}
}

// String returns the label name, or "unclassified" for the empty label.
func (l Label) String() string {
	if l == LabelUnclassified {
		return "unclassified"
	}
	return string(l)
}

// Term is one extractable term occurrence.
type Term struct {
	Text  string `json:"term"`
	Label Label  `json:"type,omitempty"`
	URI   string `json:"uri,omitempty"`

	// Unresolved is set by resolution when a labeled term has no canonical identifier.
	Unresolved bool `json:"unresolved,omitempty"`
}

// Classified reports whether the term carries a label.
func (t *Term) Classified() bool {
	return t.Label != LabelUnclassified
}

// IndexTerm is a hierarchical index entry: a main term with optional qualifiers.
type IndexTerm struct {
	Main   Term  `json:"main"`
	Midsub *Term `json:"midsub,omitempty"`
	Sub    *Term `json:"sub,omitempty"`
}

// Party is a named participant of a document (author, recipient or location).
type Party struct {
	Name       string `json:"name"`
	URI        string `json:"uri,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty"`
}

// Project describes the publication an entry belongs to.
type Project struct {
	Publication string   `json:"publication_name,omitempty"`
	Series      string   `json:"series_name,omitempty"`
	Volume      string   `json:"volume_info,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Formats     []string `json:"formats,omitempty"`
}

// Entry is one document inside a source volume.
type Entry struct {
	DocumentID   string      `json:"document_id"`
	Title        string      `json:"title,omitempty"`
	Project      Project     `json:"project"`
	Authors      []Party     `json:"authors,omitempty"`
	Recipients   []Party     `json:"recipients,omitempty"`
	DateFrom     string      `json:"date_from,omitempty"`
	DateTo       string      `json:"date_to,omitempty"`
	Location     *Party      `json:"location,omitempty"`
	Repositories []string    `json:"repositories,omitempty"`
	Index        []IndexTerm `json:"indexing,omitempty"`
}

// Metadata is carried through every stage unchanged.
type Metadata struct {
	Identifier string            `json:"identifier"`
	Title      string            `json:"title,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Record is the structured form of one source document.
type Record struct {
	Source   string   `json:"source"`
	Metadata Metadata `json:"metadata"`
	Entries  []Entry  `json:"entries"`
}

// Occurrences returns pointers to every term occurrence in document order:
// main, midsub, sub for each index entry of each document entry.
func (r *Record) Occurrences() []*Term {
	var out []*Term
	for i := range r.Entries {
		for j := range r.Entries[i].Index {
			it := &r.Entries[i].Index[j]
			out = append(out, &it.Main)
			if it.Midsub != nil {
				out = append(out, it.Midsub)
			}
			if it.Sub != nil {
				out = append(out, it.Sub)
			}
		}
	}
	return out
}

// Parties returns pointers to every author, recipient and location with the
// label each one is known to carry.
func (r *Record) Parties() ([]*Party, []Label) {
	var parties []*Party
	var labels []Label
	for i := range r.Entries {
		e := &r.Entries[i]
		for j := range e.Authors {
			parties = append(parties, &e.Authors[j])
			labels = append(labels, LabelPerson)
		}
		for j := range e.Recipients {
			parties = append(parties, &e.Recipients[j])
			labels = append(labels, LabelPerson)
		}
		if e.Location != nil {
			parties = append(parties, e.Location)
			labels = append(labels, LabelPlace)
		}
	}
	return parties, labels
}

// KnownEntities maps the normalized names of authors, recipients and
// locations to their implied labels.
func (r *Record) KnownEntities() map[string]Label {
	known := make(map[string]Label)
	parties, labels := r.Parties()
	for i, p := range parties {
		if name := NormalizeTerm(p.Name); name != "" {
			known[name] = labels[i]
		}
	}
	return known
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Source: r.Source,
		Metadata: Metadata{
			Identifier: r.Metadata.Identifier,
			Title:      r.Metadata.Title,
		},
		Entries: make([]Entry, len(r.Entries)),
	}
	if r.Metadata.Attributes != nil {
		out.Metadata.Attributes = make(map[string]string, len(r.Metadata.Attributes))
		for k, v := range r.Metadata.Attributes {
			out.Metadata.Attributes[k] = v
		}
	}
	for i, e := range r.Entries {
		c := e
		c.Project.Formats = cloneStrings(e.Project.Formats)
		c.Authors = cloneParties(e.Authors)
		c.Recipients = cloneParties(e.Recipients)
		c.Repositories = cloneStrings(e.Repositories)
		if e.Location != nil {
			loc := *e.Location
			c.Location = &loc
		}
		if e.Index != nil {
			c.Index = make([]IndexTerm, len(e.Index))
			for j, it := range e.Index {
				c.Index[j] = IndexTerm{Main: it.Main}
				if it.Midsub != nil {
					m := *it.Midsub
					c.Index[j].Midsub = &m
				}
				if it.Sub != nil {
					s := *it.Sub
					c.Index[j].Sub = &s
				}
			}
		}
		out.Entries[i] = c
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneParties(in []Party) []Party {
	if in == nil {
		return nil
	}
	return append([]Party(nil), in...)
}
