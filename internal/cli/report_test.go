package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/metrics"
	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/pipeline"
)

func TestPrintReport(t *testing.T) {
	stage := pipeline.StageFunc{StageName: pipeline.StageConversion, Fn: func(_ context.Context, doc string, s *pipeline.State) (*pipeline.State, error) {
		if doc == "b.xml" {
			return nil, errors.New("malformed source")
		}
		return s, nil
	}}
	report, err := pipeline.RunBatch(context.Background(), []string{"a.xml", "b.xml"}, 2, stage)
	require.NoError(t, err)

	var buf bytes.Buffer
	printReport(&buf, "run1", report)
	out := buf.String()

	assert.Contains(t, out, "Run run1: 1 completed, 1 failed")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasPrefix(lines[len(lines)-2], "a.xml"))
	assert.Contains(t, lines[len(lines)-1], "conversion")
	assert.Contains(t, lines[len(lines)-1], "malformed source")
}

func TestPrintStats(t *testing.T) {
	c := metrics.NewCollector()
	var buf bytes.Buffer
	printStats(&buf, c.Snapshot())
	assert.Empty(t, buf.String())

	c.RecordTiming(pipeline.StageConversion, 0, false)
	printStats(&buf, c.Snapshot())
	assert.Contains(t, buf.String(), "conversion")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "…56789", truncate("0123456789", 6))
}
