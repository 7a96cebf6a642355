package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/source"
)

func fastRetry(attempts int) pipeline.RetryPolicy {
	return pipeline.RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		CallTimeout:     time.Second,
	}
}

// volume renders a one-entry XML volume with the given index terms.
func volume(docID, author string, terms ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<volume><document><documentID>%s</documentID>", docID)
	fmt.Fprintf(&b, "<projectInfo><publicationName>Papers</publicationName></projectInfo>")
	if author != "" {
		fmt.Fprintf(&b, "<authors><author>%s</author></authors>", author)
	}
	b.WriteString("<indexing>")
	for _, t := range terms {
		fmt.Fprintf(&b, "<indexTerm><main>%s</main></indexTerm>", t)
	}
	b.WriteString("</indexing></document></volume>")
	return b.String()
}

type memSource map[string]string

func (m memSource) Read(_ context.Context, document string) ([]byte, error) {
	data, ok := m[document]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, document)
	}
	return []byte(data), nil
}

// fakeClassifier answers from a fixed label table. fail, when set, may
// replace the answer for a given call.
type fakeClassifier struct {
	labels map[string]string
	fail   func(call int, terms []string) error

	mu      sync.Mutex
	calls   int
	batches [][]string
}

func (f *fakeClassifier) Classify(_ context.Context, terms []string) (map[string]string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.batches = append(f.batches, append([]string(nil), terms...))
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(call, terms); err != nil {
			return nil, err
		}
	}
	out := make(map[string]string)
	for _, t := range terms {
		if l, ok := f.labels[t]; ok {
			out[t] = l
		}
	}
	return out, nil
}

func (f *fakeClassifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type resolverFunc func(ctx context.Context, term string, label models.Label) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, term string, label models.Label) (string, error) {
	return f(ctx, term, label)
}

func recordWith(terms ...string) *models.Record {
	rec := &models.Record{Source: "vol.xml", Entries: []models.Entry{{DocumentID: "D1"}}}
	for _, t := range terms {
		rec.Entries[0].Index = append(rec.Entries[0].Index, models.IndexTerm{Main: models.Term{Text: t}})
	}
	return rec
}
