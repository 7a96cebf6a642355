package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *Record {
	return &Record{
		Source: "vol1.xml",
		Metadata: Metadata{
			Identifier: "vol1",
			Title:      "Papers of Thomas Jefferson",
		},
		Entries: []Entry{{
			DocumentID: "TSJN-01-01-02-0001",
			Title:      "To John Page",
			Project:    Project{Publication: "Papers of Thomas Jefferson", Volume: "1"},
			Authors:    []Party{{Name: "Jefferson, Thomas", URI: "r1"}},
			Recipients: []Party{{Name: "Page, John", URI: "r2"}},
			DateFrom:   "1760-12-25",
			Location:   &Party{Name: "Fairfields", URI: "r3"},
			Index: []IndexTerm{
				{Main: Term{Text: "Thomas Jefferson", Label: LabelPerson, URI: "r1"}},
				{
					Main:   Term{Text: "tobacco", Label: LabelTerm, Unresolved: true},
					Midsub: &Term{Text: "prices", Label: LabelTerm, Unresolved: true},
				},
				{Main: Term{Text: "tobacco", Label: LabelTerm, Unresolved: true}},
				{Main: Term{Text: "weather"}},
			},
		}},
	}
}

func TestBuildGraph(t *testing.T) {
	frag := BuildGraph(sampleRecord())

	refs := make([]NodeRef, 0, len(frag.Nodes))
	for _, n := range frag.Nodes {
		refs = append(refs, n.NodeRef)
	}
	wantRefs := []NodeRef{
		{TableDocument, "TSJN-01-01-02-0001"},
		{TablePerson, "r1"},
		{TablePerson, "r2"},
		{TablePlace, "r3"},
		{TableDate, "1760-12-25"},
		{TableTerm, "tobacco"},
		{TableTerm, "prices"},
		{TableTerm, "weather"},
	}
	if diff := cmp.Diff(wantRefs, refs); diff != "" {
		t.Errorf("node refs mismatch (-want +got):\n%s", diff)
	}

	doc := NodeRef{TableDocument, "TSJN-01-01-02-0001"}
	wantEdges := []Edge{
		{RelAuthor, NodeRef{TablePerson, "r1"}, doc, "vol1.xml"},
		{RelRecipient, NodeRef{TablePerson, "r2"}, doc, "vol1.xml"},
		{RelLocation, NodeRef{TablePlace, "r3"}, doc, "vol1.xml"},
		{RelDateFrom, doc, NodeRef{TableDate, "1760-12-25"}, "vol1.xml"},
		{RelHasPerson, NodeRef{TablePerson, "r1"}, doc, "vol1.xml"},
		{RelHasTerm, doc, NodeRef{TableTerm, "tobacco"}, "vol1.xml"},
		{RelMidsub, NodeRef{TableTerm, "tobacco"}, NodeRef{TableTerm, "prices"}, "vol1.xml"},
		{RelHasTerm, doc, NodeRef{TableTerm, "weather"}, "vol1.xml"},
	}
	if diff := cmp.Diff(wantEdges, frag.Edges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildGraph_PersonNodeMergesProps(t *testing.T) {
	frag := BuildGraph(sampleRecord())

	var person *Node
	for i := range frag.Nodes {
		if frag.Nodes[i].NodeRef == (NodeRef{TablePerson, "r1"}) {
			person = &frag.Nodes[i]
		}
	}
	require.NotNil(t, person)
	// The index term arrives after the author and overwrites the display name.
	assert.Equal(t, "Thomas Jefferson", person.Props["name"])
	assert.Equal(t, "r1", person.Props["uri"])
}

func TestBuildGraph_UnclassifiedTermLabel(t *testing.T) {
	frag := BuildGraph(sampleRecord())
	for _, n := range frag.Nodes {
		if n.NodeRef == (NodeRef{TableTerm, "weather"}) {
			assert.Equal(t, "unclassified", n.Props["label"])
			return
		}
	}
	t.Fatal("weather term node not found")
}

func TestRecordClone(t *testing.T) {
	orig := sampleRecord()
	clone := orig.Clone()
	require.Empty(t, cmp.Diff(orig, clone))

	clone.Entries[0].Index[1].Midsub.Label = LabelPerson
	clone.Entries[0].Authors[0].URI = "changed"
	clone.Entries[0].Location.Name = "elsewhere"

	assert.Equal(t, LabelTerm, orig.Entries[0].Index[1].Midsub.Label)
	assert.Equal(t, "r1", orig.Entries[0].Authors[0].URI)
	assert.Equal(t, "Fairfields", orig.Entries[0].Location.Name)
}

func TestRecordOccurrencesAndKnownEntities(t *testing.T) {
	rec := sampleRecord()

	var texts []string
	for _, occ := range rec.Occurrences() {
		texts = append(texts, occ.Text)
	}
	assert.Equal(t, []string{"Thomas Jefferson", "tobacco", "prices", "tobacco", "weather"}, texts)

	assert.Equal(t, map[string]Label{
		"jefferson, thomas": LabelPerson,
		"page, john":        LabelPerson,
		"fairfields":        LabelPlace,
	}, rec.KnownEntities())
}
