package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/manifest-cli/internal/batch"
	"github.com/harborline/manifest-cli/internal/fetcher"
)

const runTestCSV = `Shipper,Consignee,Shipper Address
ACME PVT LTD,GLOBEX LLC,"12 DOCK RD, MUMBAI"
nan,HOOLI INC,
`

func TestProcessManifest_PartyColumns(t *testing.T) {
	m, err := fetcher.ReadCSV(strings.NewReader(runTestCSV))
	require.NoError(t, err)

	a := batch.New(batch.Options{})
	stats, err := processManifest(context.Background(), m, a, []string{"Shipper", "Consignee"}, nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	shipper, err := m.Column("Refined Shipper")
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME PRIVATE LIMITED", ""}, shipper)

	consignee, err := m.Column("Refined Consignee")
	require.NoError(t, err)
	assert.Equal(t, []string{"GLOBEX LIMITED LIABILITY COMPANY", "HOOLI INCORPORATED"}, consignee)

	assert.Equal(t, "Shipper", stats[0].Column)
	assert.Equal(t, 2, stats[0].Rows)
	assert.Equal(t, 1, stats[0].Nulls)
}

func TestProcessManifest_AddressColumns(t *testing.T) {
	m, err := fetcher.ReadCSV(strings.NewReader(runTestCSV))
	require.NoError(t, err)

	a := batch.New(batch.Options{})
	stats, err := processManifest(context.Background(), m, a, nil, []string{"Shipper Address"})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "Shipper Address", stats[0].Column)

	// The offline extractor resolves nothing.
	cities, err := m.Column("Shipper Address City")
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, cities)
}

func TestProcessManifest_MissingColumnSkipped(t *testing.T) {
	m, err := fetcher.ReadCSV(strings.NewReader(runTestCSV))
	require.NoError(t, err)

	a := batch.New(batch.Options{})
	stats, err := processManifest(context.Background(), m, a, []string{"Notify Party 1", "Shipper"}, nil)
	require.NoError(t, err)

	// The absent column is skipped, the present one still runs.
	require.Len(t, stats, 1)
	assert.Equal(t, "Shipper", stats[0].Column)
	assert.Equal(t, -1, m.ColumnIndex("Refined Notify Party 1"))
}

func TestOutputs(t *testing.T) {
	m, err := fetcher.ReadCSV(strings.NewReader(runTestCSV))
	require.NoError(t, err)

	a := batch.New(batch.Options{})
	recs, err := a.StandardizeNames(context.Background(), mustColumn(t, m, "Shipper"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME PRIVATE LIMITED", ""}, outputs(recs))
}

func mustColumn(t *testing.T, m *fetcher.Manifest, name string) []string {
	t.Helper()
	col, err := m.Column(name)
	require.NoError(t, err)
	return col
}
