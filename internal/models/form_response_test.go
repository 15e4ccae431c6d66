package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswersPersistNaturalJSON(t *testing.T) {
	answers := Answers{
		"name":  StringAnswer("Ana"),
		"age":   NumberAnswer(30),
		"terms": BoolAnswer(true),
		"tags":  ListAnswer([]string{"it", "design"}),
		"logo":  URLAnswer("https://cdn.example.com/logo.png"),
	}
	value, err := answers.Value()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(value.([]byte), &raw))
	assert.Equal(t, "https://cdn.example.com/logo.png", raw["logo"])
	assert.Equal(t, float64(30), raw["age"])

	var scanned Answers
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, AnswerNumber, scanned["age"].Kind)
	assert.Equal(t, AnswerBool, scanned["terms"].Kind)
	assert.Equal(t, []string{"it", "design"}, scanned["tags"].List)
	// URLs come back type-erased
	assert.Equal(t, AnswerString, scanned["logo"].Kind)
	assert.Equal(t, "https://cdn.example.com/logo.png", scanned["logo"].Text)
}

func TestAnswerValueDisplay(t *testing.T) {
	assert.Equal(t, "2.5", NumberAnswer(2.5).Display())
	assert.Equal(t, "Yes", BoolAnswer(true).Display())
	assert.Equal(t, "No", BoolAnswer(false).Display())
	assert.Equal(t, "a, b", ListAnswer([]string{"a", "b"}).Display())
	assert.True(t, StringAnswer("  ").IsEmpty())
	assert.False(t, BoolAnswer(false).IsEmpty())
	assert.True(t, AnswerValue{}.IsEmpty())
}
