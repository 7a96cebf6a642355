package db

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

// Session is one pooled unit of store access. Sessions are not shared between
// documents; Close returns the slot to the pool.
type Session interface {
	WriteFragment(ctx context.Context, frag models.Fragment) error
	Close()
}

type session struct {
	c       *Client
	release sync.Once
}

// Acquire takes a session from the pool, blocking until one is free or ctx
// is done.
func (c *Client) Acquire(ctx context.Context) (Session, error) {
	if err := c.sessions.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}
	return &session{c: c}, nil
}

func (s *session) Close() {
	s.release.Do(func() { s.c.sessions.Release(1) })
}

// WriteFragment upserts every node of the fragment and replaces the edges
// owned by its source, all in one transaction.
func (s *session) WriteFragment(ctx context.Context, frag models.Fragment) error {
	sql, vars := writeFragmentQuery(frag)
	if _, err := surrealdb.Query[any](ctx, s.c.db, sql, vars); err != nil {
		return fmt.Errorf("write fragment %s: %w", frag.Source, wrapQueryError(err))
	}
	return nil
}

// writeFragmentQuery builds the transactional statement list for a fragment.
// Node record IDs are bound once and reused by the RELATE statements.
func writeFragmentQuery(frag models.Fragment) (string, map[string]any) {
	var b strings.Builder
	vars := map[string]any{"source": frag.Source}

	b.WriteString("BEGIN TRANSACTION;\n")
	b.WriteString("DELETE relates WHERE source = $source;\n")

	refVar := make(map[models.NodeRef]string, len(frag.Nodes))
	var docs []surrealmodels.RecordID
	for i, n := range frag.Nodes {
		id := surrealmodels.NewRecordID(n.Table, n.Key)
		name := fmt.Sprintf("n%d", i)
		refVar[n.NodeRef] = name
		vars[name] = id
		vars[fmt.Sprintf("p%d", i)] = n.Props
		fmt.Fprintf(&b, "UPSERT $n%d MERGE $p%d;\n", i, i)
		if n.Table == models.TableDocument {
			docs = append(docs, id)
		}
	}

	// Entries dropped from the source since the last run.
	vars["docs"] = docs
	b.WriteString("DELETE document WHERE source = $source AND id NOTINSIDE $docs;\n")

	for i, e := range frag.Edges {
		vars[fmt.Sprintf("r%d", i)] = e.Rel
		fmt.Fprintf(&b, "RELATE $%s->relates->$%s SET rel_type = $r%d, source = $source;\n",
			refVar[e.From], refVar[e.To], i)
	}

	b.WriteString("COMMIT TRANSACTION;")
	return b.String(), vars
}
