// Package convert turns source volumes into structured records.
package convert

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

var (
	// ErrMalformedSource indicates the source is not well-formed XML.
	ErrMalformedSource = errors.New("malformed source")

	// ErrMissingMetadata indicates a required field is absent.
	ErrMissingMetadata = errors.New("missing required metadata")
)

type xmlVolume struct {
	Documents []xmlDocument `xml:"document"`
}

type xmlDocument struct {
	DocumentID   string       `xml:"documentID"`
	Title        string       `xml:"documentTitle"`
	Project      xmlProject   `xml:"projectInfo"`
	Authors      []string     `xml:"authors>author"`
	Recipients   []string     `xml:"recipients>recipient"`
	DateFrom     string       `xml:"dates>date-from"`
	DateTo       string       `xml:"dates>date-to"`
	Location     *string      `xml:"location>placeName"`
	Repositories []string     `xml:"repositories>repository"`
	IndexTerms   []xmlIndexed `xml:"indexing>indexTerm"`
}

type xmlProject struct {
	Publication string   `xml:"publicationName"`
	Series      string   `xml:"seriesName"`
	Volume      string   `xml:"volumeInfo"`
	Publisher   string   `xml:"publisher"`
	Formats     []string `xml:"formats>type"`
}

type xmlIndexed struct {
	Main   string `xml:"main"`
	Midsub string `xml:"midsub"`
	Sub    string `xml:"sub"`
}

// Parse converts one XML volume into a record. source names the document in
// the batch; its base name without extension becomes the record identifier.
func Parse(source string, data []byte) (*models.Record, error) {
	var vol xmlVolume
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&vol); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSource, source, err)
	}
	if len(vol.Documents) == 0 {
		return nil, fmt.Errorf("%w: %s contains no <document> entries", ErrMissingMetadata, source)
	}

	rec := &models.Record{
		Source: source,
		Metadata: models.Metadata{
			Identifier: identifierFor(source),
		},
		Entries: make([]models.Entry, 0, len(vol.Documents)),
	}

	for i, d := range vol.Documents {
		id := strings.TrimSpace(d.DocumentID)
		if id == "" {
			return nil, fmt.Errorf("%w: %s: document %d has no documentID", ErrMissingMetadata, source, i+1)
		}
		rec.Entries = append(rec.Entries, convertDocument(id, d))
	}

	first := rec.Entries[0].Project
	rec.Metadata.Title = first.Publication
	attrs := map[string]string{}
	for k, v := range map[string]string{
		"series":    first.Series,
		"volume":    first.Volume,
		"publisher": first.Publisher,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	if len(attrs) > 0 {
		rec.Metadata.Attributes = attrs
	}
	return rec, nil
}

func identifierFor(source string) string {
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func convertDocument(id string, d xmlDocument) models.Entry {
	e := models.Entry{
		DocumentID: id,
		Title:      strings.TrimSpace(d.Title),
		Project: models.Project{
			Publication: strings.TrimSpace(d.Project.Publication),
			Series:      strings.TrimSpace(d.Project.Series),
			Volume:      strings.TrimSpace(d.Project.Volume),
			Publisher:   strings.TrimSpace(d.Project.Publisher),
			Formats:     trimAll(d.Project.Formats),
		},
		Authors:      parties(d.Authors),
		Recipients:   parties(d.Recipients),
		DateFrom:     strings.TrimSpace(d.DateFrom),
		DateTo:       strings.TrimSpace(d.DateTo),
		Repositories: trimAll(d.Repositories),
	}
	if d.Location != nil {
		if name := strings.TrimSpace(*d.Location); name != "" {
			e.Location = &models.Party{Name: name}
		}
	}
	e.Index = indexTerms(d.IndexTerms)
	return e
}

// indexTerms strips parenthesized text and drops duplicate (main, midsub, sub)
// tuples, keeping first occurrences in order.
func indexTerms(in []xmlIndexed) []models.IndexTerm {
	type key struct{ main, midsub, sub string }
	seen := make(map[key]struct{}, len(in))
	var out []models.IndexTerm
	for _, it := range in {
		k := key{
			main:   models.StripParenthetical(it.Main),
			midsub: models.StripParenthetical(it.Midsub),
			sub:    models.StripParenthetical(it.Sub),
		}
		if k.main == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		term := models.IndexTerm{Main: models.Term{Text: k.main}}
		if k.midsub != "" {
			term.Midsub = &models.Term{Text: k.midsub}
		}
		if k.sub != "" {
			term.Sub = &models.Term{Text: k.sub}
		}
		out = append(out, term)
	}
	return out
}

func parties(names []string) []models.Party {
	var out []models.Party
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, models.Party{Name: n})
		}
	}
	return out
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
