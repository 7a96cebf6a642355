package models

// Node tables in the graph store.
const (
	TableDocument     = "document"
	TablePerson       = "person"
	TablePlace        = "place"
	TableOrganization = "organization"
	TableTerm         = "term"
	TableDate         = "date"
)

// Relation types stored in the rel_type field of the relates table.
const (
	RelAuthor          = "author"
	RelRecipient       = "recipient"
	RelLocation        = "location"
	RelDateFrom        = "date_from"
	RelDateTo          = "date_to"
	RelHasPerson       = "has_person"
	RelHasPlace        = "has_place"
	RelHasOrganization = "has_organization"
	RelHasTerm         = "has_term"
	RelMidsub          = "midsub"
	RelSub             = "sub"
)

// NodeRef identifies a node by table and key.
type NodeRef struct {
	Table string `json:"table"`
	Key   string `json:"key"`
}

// Node is an upsertable graph node.
type Node struct {
	NodeRef
	Props map[string]any `json:"props"`
}

// Edge is a typed relation between two nodes, owned by one source document.
type Edge struct {
	Rel    string  `json:"rel_type"`
	From   NodeRef `json:"from"`
	To     NodeRef `json:"to"`
	Source string  `json:"source"`
}

// Fragment is the complete graph contribution of one source document.
// Nodes and edges are unique and in first-seen order.
type Fragment struct {
	Source string `json:"source"`
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
}

type fragmentBuilder struct {
	frag      Fragment
	nodeIndex map[NodeRef]int
	edgeSeen  map[Edge]struct{}
}

func (b *fragmentBuilder) node(table, key string, props map[string]any) NodeRef {
	ref := NodeRef{Table: table, Key: key}
	if i, ok := b.nodeIndex[ref]; ok {
		for k, v := range props {
			b.frag.Nodes[i].Props[k] = v
		}
		return ref
	}
	b.nodeIndex[ref] = len(b.frag.Nodes)
	b.frag.Nodes = append(b.frag.Nodes, Node{NodeRef: ref, Props: props})
	return ref
}

func (b *fragmentBuilder) edge(rel string, from, to NodeRef) {
	e := Edge{Rel: rel, From: from, To: to, Source: b.frag.Source}
	if _, ok := b.edgeSeen[e]; ok {
		return
	}
	b.edgeSeen[e] = struct{}{}
	b.frag.Edges = append(b.frag.Edges, e)
}

func (b *fragmentBuilder) party(table string, p *Party) NodeRef {
	key := p.URI
	if key == "" {
		key = NormalizeTerm(p.Name)
	}
	props := map[string]any{"name": p.Name}
	if p.URI != "" {
		props["uri"] = p.URI
	}
	return b.node(table, key, props)
}

func (b *fragmentBuilder) term(t *Term) NodeRef {
	props := map[string]any{"term": t.Text, "label": t.Label.String()}
	if t.URI != "" {
		props["uri"] = t.URI
	}
	return b.node(TableTerm, NormalizeTerm(t.Text), props)
}

// entity stores a labeled main term in its entity table.
func (b *fragmentBuilder) entity(table string, t *Term) NodeRef {
	return b.party(table, &Party{Name: t.Text, URI: t.URI})
}

// BuildGraph maps a finished record onto the node/relationship model.
func BuildGraph(r *Record) Fragment {
	b := &fragmentBuilder{
		frag:      Fragment{Source: r.Source},
		nodeIndex: make(map[NodeRef]int),
		edgeSeen:  make(map[Edge]struct{}),
	}

	for i := range r.Entries {
		e := &r.Entries[i]
		docProps := map[string]any{
			"document_id": e.DocumentID,
			"source":      r.Source,
		}
		setIf(docProps, "title", e.Title)
		setIf(docProps, "publication_name", e.Project.Publication)
		setIf(docProps, "series_name", e.Project.Series)
		setIf(docProps, "volume_info", e.Project.Volume)
		setIf(docProps, "publisher", e.Project.Publisher)
		if len(e.Project.Formats) > 0 {
			docProps["formats"] = cloneStrings(e.Project.Formats)
		}
		if len(e.Repositories) > 0 {
			docProps["repositories"] = cloneStrings(e.Repositories)
		}
		doc := b.node(TableDocument, e.DocumentID, docProps)

		for j := range e.Authors {
			b.edge(RelAuthor, b.party(TablePerson, &e.Authors[j]), doc)
		}
		for j := range e.Recipients {
			b.edge(RelRecipient, b.party(TablePerson, &e.Recipients[j]), doc)
		}
		if e.Location != nil {
			b.edge(RelLocation, b.party(TablePlace, e.Location), doc)
		}
		if e.DateFrom != "" {
			b.edge(RelDateFrom, doc, b.node(TableDate, e.DateFrom, map[string]any{"date": e.DateFrom}))
		}
		if e.DateTo != "" {
			b.edge(RelDateTo, doc, b.node(TableDate, e.DateTo, map[string]any{"date": e.DateTo}))
		}

		for j := range e.Index {
			it := &e.Index[j]
			var parent NodeRef
			switch it.Main.Label {
			case LabelPerson:
				parent = b.entity(TablePerson, &it.Main)
				b.edge(RelHasPerson, parent, doc)
			case LabelPlace:
				parent = b.entity(TablePlace, &it.Main)
				b.edge(RelHasPlace, parent, doc)
			case LabelOrganization:
				parent = b.entity(TableOrganization, &it.Main)
				b.edge(RelHasOrganization, parent, doc)
			default:
				parent = b.term(&it.Main)
				b.edge(RelHasTerm, doc, parent)
			}
			if it.Midsub != nil && it.Midsub.Text != "" {
				b.edge(RelMidsub, parent, b.term(it.Midsub))
			}
			if it.Sub != nil && it.Sub.Text != "" {
				b.edge(RelSub, parent, b.term(it.Sub))
			}
		}
	}
	return b.frag
}

func setIf(m map[string]any, key, val string) {
	if val != "" {
		m[key] = val
	}
}
