package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/resolve"
)

// ResolutionStage attaches canonical identifiers to labeled terms and to the
// authors, recipients and locations of each entry.
//
// A term the resolver cannot place is marked unresolved. Only an outage of
// the resolver itself fails the document.
type ResolutionStage struct {
	Resolver resolve.Resolver
	Retry    pipeline.RetryPolicy
	Logger   *slog.Logger
}

// Name implements pipeline.Stage.
func (s *ResolutionStage) Name() string { return pipeline.StageResolution }

type lookupKey struct {
	name  string
	label models.Label
}

type lookup struct {
	uri string
	ok  bool
}

// Run implements pipeline.Stage.
func (s *ResolutionStage) Run(ctx context.Context, document string, state *pipeline.State) (*pipeline.State, error) {
	if err := requireRecord(state, s.Name()); err != nil {
		return nil, err
	}
	rec := state.Record.Clone()
	log := s.logger().With("document", document)
	cache := make(map[lookupKey]lookup)

	resolveOne := func(name string, label models.Label) (lookup, error) {
		key := lookupKey{models.NormalizeTerm(name), label}
		if hit, ok := cache[key]; ok {
			return hit, nil
		}

		var uri string
		err := s.Retry.Do(ctx, "resolve", func(ctx context.Context) error {
			var err error
			uri, err = s.Resolver.Resolve(ctx, name, label)
			return err
		})
		var res lookup
		switch {
		case err == nil:
			res = lookup{uri: uri, ok: true}
		case errors.Is(err, resolve.ErrNotFound):
		case errors.Is(err, pipeline.ErrCapabilityOutage):
			return lookup{}, fmt.Errorf("resolve %q: %w", name, err)
		default:
			log.Warn("term left unresolved", "term", name, "label", label, "error", err)
		}
		cache[key] = res
		return res, nil
	}

	unresolved := 0
	parties, labels := rec.Parties()
	for i, p := range parties {
		res, err := resolveOne(p.Name, labels[i])
		if err != nil {
			return nil, err
		}
		p.URI, p.Unresolved = res.uri, !res.ok
		if !res.ok {
			unresolved++
		}
	}

	for _, t := range rec.Occurrences() {
		if !t.Classified() {
			continue
		}
		res, err := resolveOne(t.Text, t.Label)
		if err != nil {
			return nil, err
		}
		t.URI, t.Unresolved = res.uri, !res.ok
		if !res.ok {
			unresolved++
		}
	}

	log.Debug("resolution complete", "lookups", len(cache), "unresolved", unresolved)
	return &pipeline.State{Document: document, Record: rec}, nil
}

func (s *ResolutionStage) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
