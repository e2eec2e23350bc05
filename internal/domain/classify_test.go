package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		duration  float64
		legacy    Category
		inclusive Category
	}{
		{5, CategoryUnder30, CategoryUnder30},
		{25, CategoryUnder30, CategoryUnder30},
		{30, CategoryOver180, Category30To60},
		{35, Category30To60, Category30To60},
		{60, Category30To60, Category30To60},
		{65, Category60To120, Category60To120},
		{120, Category60To120, Category60To120},
		{125, Category120To180, Category120To180},
		{180, Category120To180, Category120To180},
		{185, CategoryOver180, CategoryOver180},
		{1440, CategoryOver180, CategoryOver180},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.legacy, Classify(tt.duration, PolicyLegacy), "legacy d=%v", tt.duration)
		assert.Equal(t, tt.inclusive, Classify(tt.duration, PolicyInclusive), "inclusive d=%v", tt.duration)
	}
}

func TestCategory_Labels(t *testing.T) {
	want := []string{"<30min", "30-60min", "60-120min", "120-180min", ">180min"}
	for i, c := range Categories() {
		assert.Equal(t, want[i], c.String())

		parsed, err := ParseCategory(want[i])
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCategory("forever")
	assert.Error(t, err)
	assert.Equal(t, "Category(9)", Category(9).String())
}

func TestCategory_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Category{"c": Category60To120})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"60-120min"}`, string(data))

	var decoded struct{ C Category }
	require.NoError(t, json.Unmarshal([]byte(`{"C":">180min"}`), &decoded))
	assert.Equal(t, CategoryOver180, decoded.C)
}

func TestParseClassificationPolicy(t *testing.T) {
	p, err := ParseClassificationPolicy("inclusive")
	require.NoError(t, err)
	assert.Equal(t, PolicyInclusive, p)

	_, err = ParseClassificationPolicy("strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict")
}
