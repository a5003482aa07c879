package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitcore/profiler/sampling"
)

func sampleRows() []sampling.SampledFunction {
	return []sampling.SampledFunction{
		{Name: "foo", Module: "libfoo.so", Address: 0x1500, Exclusive: 10, Inclusive: 40},
		{Name: "bar", Module: "libfoo.so", Address: 0x1700, Exclusive: 30, Inclusive: 30},
		{Name: "baz", Module: "libbar.so", Address: 0x2000, Exclusive: 5, Inclusive: 5},
	}
}

func TestFilterComparisonOnFloatColumn(t *testing.T) {
	got, err := Filter(sampleRows(), "inclusive > 10")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "foo", got[0].Name)
	assert.Equal(t, "bar", got[1].Name)
}

func TestFilterStringEquality(t *testing.T) {
	got, err := Filter(sampleRows(), `module = "libbar.so"`)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "baz", got[0].Name)
}

func TestFilterAndOr(t *testing.T) {
	got, err := Filter(sampleRows(), `module = "libfoo.so" AND exclusive > 20`)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "bar", got[0].Name)

	got, err = Filter(sampleRows(), `name = "baz" OR name = "foo"`)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFilterBetween(t *testing.T) {
	got, err := Filter(sampleRows(), "inclusive between 20 and 35")
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "bar", got[0].Name)
}

func TestFilterNotBetween(t *testing.T) {
	got, err := Filter(sampleRows(), "inclusive not between 20 and 35")
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFilterRejectsNonWhereExpression(t *testing.T) {
	_, err := Filter(sampleRows(), "select * from functions")
	assert.Error(t, err)
}

func TestFilterUnknownColumnPanicsIntoError(t *testing.T) {
	_, err := Filter(sampleRows(), "nonexistent = 1")
	assert.Error(t, err)
}
