package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/llm"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

const defaultBatchSize = 50

// ClassificationStage labels every term occurrence in a record.
//
// Terms naming a known author, recipient or location take that entity's label
// without an external call. The remaining distinct terms are sent in batches;
// terms the classifier leaves out stay unclassified.
type ClassificationStage struct {
	Classifier Classifier
	Retry      pipeline.RetryPolicy
	BatchSize  int
	Logger     *slog.Logger
}

// Name implements pipeline.Stage.
func (s *ClassificationStage) Name() string { return pipeline.StageClassification }

// Run implements pipeline.Stage.
func (s *ClassificationStage) Run(ctx context.Context, document string, state *pipeline.State) (*pipeline.State, error) {
	if err := requireRecord(state, s.Name()); err != nil {
		return nil, err
	}
	rec := state.Record.Clone()
	known := rec.KnownEntities()
	convertPartyNames(rec)

	// Distinct normalized terms needing a label, in first-seen order.
	var pending []string
	original := make(map[string]string)
	for _, t := range rec.Occurrences() {
		key := models.NormalizeTerm(t.Text)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		if _, ok := original[key]; !ok {
			original[key] = t.Text
			pending = append(pending, key)
		}
	}

	labels := make(map[string]models.Label, len(pending))
	size := s.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	for start := 0; start < len(pending); start += size {
		batch := pending[start:min(start+size, len(pending))]
		terms := make([]string, len(batch))
		for i, key := range batch {
			terms[i] = original[key]
		}

		answer, err := s.classify(ctx, terms)
		if err != nil {
			return nil, err
		}
		for term, raw := range answer {
			if label, ok := models.ParseLabel(raw); ok {
				labels[models.NormalizeTerm(term)] = label
			}
		}
	}

	unclassified := 0
	for _, t := range rec.Occurrences() {
		key := models.NormalizeTerm(t.Text)
		label, ok := known[key]
		if !ok {
			label = labels[key]
		}
		t.Label = label
		if label == models.LabelUnclassified {
			unclassified++
			continue
		}
		if label == models.LabelPerson {
			t.Text = models.ConvertName(t.Text)
		}
	}

	s.logger().Debug("classification merged",
		"document", document,
		"distinct_terms", len(pending),
		"known", len(known),
		"unclassified", unclassified)
	return &pipeline.State{Document: document, Record: rec}, nil
}

// convertPartyNames puts author and recipient names in reading order so they
// resolve to the same identifier as the person index terms naming them.
// Known entities are keyed by the names as written and must be built first.
func convertPartyNames(rec *models.Record) {
	for i := range rec.Entries {
		e := &rec.Entries[i]
		for j := range e.Authors {
			e.Authors[j].Name = models.ConvertName(e.Authors[j].Name)
		}
		for j := range e.Recipients {
			e.Recipients[j].Name = models.ConvertName(e.Recipients[j].Name)
		}
	}
}

// classify sends one batch under the retry policy. Rate limiting and provider
// outages are retried; authorization and quota errors and unparseable answers
// are not.
func (s *ClassificationStage) classify(ctx context.Context, terms []string) (map[string]string, error) {
	var answer map[string]string
	err := s.Retry.Do(ctx, "classify", func(ctx context.Context) error {
		var err error
		answer, err = s.Classifier.Classify(ctx, terms)
		if (errors.Is(err, llm.ErrRateLimited) || errors.Is(err, llm.ErrProviderUnavailable)) &&
			!errors.Is(err, llm.ErrFatalAPI) {
			return pipeline.Transient(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("classify %d terms: %w", len(terms), err)
	}
	return answer, nil
}

func (s *ClassificationStage) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
