package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/tclaughridge/Oculus-Data-Pipeline/internal/models"
)

func TestWriteFragmentQuery(t *testing.T) {
	frag := models.BuildGraph(sampleRecord("vol1.xml"))
	sql, vars := writeFragmentQuery(frag)

	lines := strings.Split(sql, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, "BEGIN TRANSACTION;", lines[0])
	assert.Equal(t, "DELETE relates WHERE source = $source;", lines[1])
	assert.Equal(t, "COMMIT TRANSACTION;", lines[len(lines)-1])

	assert.Equal(t, len(frag.Nodes), strings.Count(sql, "UPSERT "))
	assert.Equal(t, len(frag.Edges), strings.Count(sql, "RELATE "))
	assert.Equal(t, "vol1.xml", vars["source"])

	// Edges are deleted before any RELATE runs.
	assert.Less(t, strings.Index(sql, "DELETE relates"), strings.Index(sql, "RELATE "))

	assert.Equal(t, surrealmodels.NewRecordID(frag.Nodes[0].Table, frag.Nodes[0].Key), vars["n0"])
	assert.Equal(t, frag.Nodes[0].Props, vars["p0"])
	assert.Equal(t, frag.Edges[0].Rel, vars["r0"])
}

func TestWriteFragmentQuery_EdgesReferenceNodeVars(t *testing.T) {
	frag := models.BuildGraph(sampleRecord("vol1.xml"))
	sql, vars := writeFragmentQuery(frag)

	for _, line := range strings.Split(sql, "\n") {
		if !strings.HasPrefix(line, "RELATE ") {
			continue
		}
		ends := strings.SplitN(strings.TrimPrefix(line, "RELATE "), " ", 2)[0]
		for _, v := range strings.Split(ends, "->relates->") {
			_, ok := vars[strings.TrimPrefix(v, "$")]
			assert.True(t, ok, "unbound endpoint %s in %q", v, line)
		}
	}
}
