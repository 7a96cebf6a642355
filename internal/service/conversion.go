package service

import (
	"context"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/convert"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

// ConversionStage reads a source document and parses it into a record.
type ConversionStage struct {
	Source SourceReader
	Retry  pipeline.RetryPolicy
}

// Name implements pipeline.Stage.
func (s *ConversionStage) Name() string { return pipeline.StageConversion }

// Run implements pipeline.Stage.
func (s *ConversionStage) Run(ctx context.Context, document string, state *pipeline.State) (*pipeline.State, error) {
	var data []byte
	err := s.Retry.Do(ctx, "read source", func(ctx context.Context) error {
		var err error
		data, err = s.Source.Read(ctx, document)
		return err
	})
	if err != nil {
		return nil, err
	}

	rec, err := convert.Parse(document, data)
	if err != nil {
		return nil, err
	}
	return &pipeline.State{Document: document, Record: rec}, nil
}
