package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_NullMarkers(t *testing.T) {
	e := Default()
	for _, s := range []string{"", "   ", "nan", "NaN", "NAN", "null", "NULL", " null "} {
		assert.Equal(t, "", e.Normalize(s), "%q", s)
	}
}

func TestNormalize_NoSuffix(t *testing.T) {
	e := Default()
	assert.Equal(t, "ACME", e.Normalize("ACME"))
	assert.Equal(t, "ACME GLOBAL TRADING", e.Normalize("  ACME GLOBAL TRADING  "))
	assert.Equal(t, "RECORDINGCO", e.Normalize("RECORDINGCO"))
}

func TestNormalize_SingleSuffix(t *testing.T) {
	e := Default()
	assert.Equal(t, "ACME LIMITED", e.Normalize("ACME LTD"))
	assert.Equal(t, "ACME LIMITED", e.Normalize("ACME LTD."))
	assert.Equal(t, "ACME INCORPORATED", e.Normalize("ACME INC"))
	assert.Equal(t, "ACME CORPORATION", e.Normalize("ACME CORP."))
	assert.Equal(t, "RECORDING COMPANY", e.Normalize("RECORDING CO"))
}

func TestNormalize_LongestMatchPriority(t *testing.T) {
	assert.Equal(t, "ACME LIMITED LIABILITY COMPANY", Default().Normalize("ACME L.L.C."))
	assert.Equal(t, "ACME LIMITED LIABILITY COMPANY", Default().Normalize("ACME LLC"))
}

func TestNormalize_StackedSuffixes(t *testing.T) {
	e := Default()
	assert.Equal(t, "ACME PRIVATE LIMITED", e.Normalize("ACME PVT LTD"))
	assert.Equal(t, "ACME PRIVATE LIMITED", e.Normalize("ACME PVT. LTD."))
	assert.Equal(t, "ACME PRIVATE LIMITED", e.Normalize("ACME (P) LTD"))
	assert.Equal(t, "ACME PRIVATE LIMITED", e.Normalize("ACME PTE LTD"))
}

func TestNormalize_CasePreservedOutsideSuffix(t *testing.T) {
	e := Default()
	assert.Equal(t, "acme LIMITED", e.Normalize("acme ltd"))
	assert.Equal(t, "Acme Widgets INCORPORATED", e.Normalize("Acme Widgets inc."))
}

func TestNormalize_SingleLetterEdge(t *testing.T) {
	e := Default()
	assert.Equal(t, "HOTEL", e.Normalize("HOTEL"))
	assert.Equal(t, "ACME LIMITED", e.Normalize("ACME L"))
	assert.Equal(t, "ACME LIMITED", e.Normalize("ACME L."))
	assert.Equal(t, "LIMITED", e.Normalize("LTD"))
}

func TestNormalize_SpacesCollapsedOnRewrite(t *testing.T) {
	e := Default()
	assert.Equal(t, "ACME LIMITED", e.Normalize("ACME   LTD"))
	// Untouched inputs keep their internal spacing.
	assert.Equal(t, "ACME   GROUP", e.Normalize("ACME   GROUP"))
}

func TestNormalize_Idempotent(t *testing.T) {
	e := Default()
	inputs := []string{
		"", "nan", "null",
		"ACME", "ACME LTD", "ACME L.L.C.", "ACME PVT LTD", "ACME (P) LTD.",
		"acme ltd", "RECORDING CO", "RECORDINGCO", "HOTEL",
		"ACME PRIVATE LIMITED", "ACME LIMITED LIABILITY COMPANY",
		"ACME, LLC", "ACME LIMITE", "ACME COMPAN", "LTD", "L",
		"ACME   LTD", "Shree Ganesh Exports pvt. ltd.",
	}
	for _, in := range inputs {
		once := e.Normalize(in)
		assert.Equal(t, once, e.Normalize(once), "not idempotent for %q", in)
	}
}

func TestNormalize_PunctuationBeforeSuffixKept(t *testing.T) {
	// The engine only rewrites the suffix span; a comma before it stays.
	assert.Equal(t, "ACME, LIMITED LIABILITY COMPANY", Default().Normalize("ACME, LLC"))
}

func TestIsNullMarker(t *testing.T) {
	assert.True(t, IsNullMarker(""))
	assert.True(t, IsNullMarker("  "))
	assert.True(t, IsNullMarker("NaN"))
	assert.True(t, IsNullMarker("null"))
	assert.False(t, IsNullMarker("ACME"))
	assert.False(t, IsNullMarker("none"))
}
