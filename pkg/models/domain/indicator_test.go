package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDetails(t *testing.T) {
	t.Run("vulnerability summary", func(t *testing.T) {
		d, err := DecodeDetails(map[string]any{
			"coverage": true,
			"maximum":  float64(1),
			"high":     float64(2),
		})
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, DetailsVulnerabilitySummary, d.Kind())

		summary, ok := d.(VulnerabilitySummary)
		require.True(t, ok)
		assert.True(t, summary.Coverage)
		assert.Equal(t, 1, summary.Maximum)
		assert.Equal(t, 2, summary.High)
		assert.Equal(t, 0, summary.Low)
	})

	t.Run("observatory score", func(t *testing.T) {
		d, err := DecodeDetails(map[string]any{
			"grade": "B+",
			"tests": []any{map[string]any{"name": "csp", "pass": false}},
		})
		require.NoError(t, err)
		score, ok := d.(ObservatoryScore)
		require.True(t, ok)
		assert.Equal(t, "B+", score.Grade)
		assert.Len(t, score.Tests, 1)
	})

	t.Run("dast findings", func(t *testing.T) {
		d, err := DecodeDetails(map[string]any{
			"findings": []any{"xss", "sqli"},
		})
		require.NoError(t, err)
		assert.Equal(t, DetailsDastVulnerabilities, d.Kind())
	})

	t.Run("first claim wins when keys overlap", func(t *testing.T) {
		d, err := DecodeDetails(map[string]any{
			"findings": []any{},
			"grade":    "A",
			"coverage": false,
		})
		require.NoError(t, err)
		assert.Equal(t, DetailsVulnerabilitySummary, d.Kind())
	})

	t.Run("unknown shape", func(t *testing.T) {
		d, err := DecodeDetails(map[string]any{"something": 1})
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("wrong field type", func(t *testing.T) {
		_, err := DecodeDetails(map[string]any{"coverage": "yes"})
		assert.Error(t, err)
	})
}

func TestEncodeDetails(t *testing.T) {
	raw, err := EncodeDetails(ObservatoryScore{Grade: "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", raw["grade"])

	d, err := DecodeDetails(raw)
	require.NoError(t, err)
	assert.Equal(t, DetailsObservatoryScore, d.Kind())

	raw, err = EncodeDetails(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
