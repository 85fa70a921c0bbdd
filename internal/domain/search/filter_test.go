package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRoundTrip(t *testing.T) {
	original := And(
		FieldOpValue("edges", OpEqual, float64(4)),
		FieldOpValue("title", OpStartsWith, "Sq"),
		Or(
			FieldIsNull("color"),
			FieldOpValue("color", OpIn, []interface{}{"red", "blue"}),
		),
	)

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var parsed Filter
	require.NoError(t, json.Unmarshal(raw, &parsed))

	again, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
	assert.Equal(t, original, parsed)
}

func TestFilterParsesLeafWithoutValue(t *testing.T) {
	var f Filter
	require.NoError(t, json.Unmarshal([]byte(`{"f":"color","o":"notnull"}`), &f))

	assert.False(t, f.IsGroup())
	assert.Equal(t, "color", f.Field())
	assert.Equal(t, OpNotNull, f.Op())
	assert.Nil(t, f.Value())
}

func TestFilterRejectsUnknownOperator(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"f":"color","o":"like","v":"x"}`), &f)
	assert.Error(t, err)
}

func TestFilterRejectsMissingValue(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"f":"color","o":"eq"}`), &f)
	assert.Error(t, err)
}

func TestFilterRejectsEmptyGroup(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"and":[]}`), &f)
	assert.Error(t, err)
}

func TestFilterRejectsScalarInOperand(t *testing.T) {
	var f Filter
	err := json.Unmarshal([]byte(`{"f":"color","o":"in","v":"red"}`), &f)
	assert.Error(t, err)
}
