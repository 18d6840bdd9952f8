package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("SOCRATES_TEST_HOST", "redis.internal")
	t.Setenv("SOCRATES_TEST_PORT", "6379")

	input := `{"redis":{"addr":"${SOCRATES_TEST_HOST}:${SOCRATES_TEST_PORT}"}}`
	want := `{"redis":{"addr":"redis.internal:6379"}}`

	assert.Equal(t, want, string(ExpandEnv([]byte(input))))
}

func TestExpandEnvMissingVariableExpandsEmpty(t *testing.T) {
	input := `{"api_key":"${SOCRATES_DOES_NOT_EXIST}"}`
	want := `{"api_key":""}`

	assert.Equal(t, want, string(ExpandEnv([]byte(input))))
}

func TestExpandEnvNoVariablesPassesThrough(t *testing.T) {
	input := `{"redis":{"prefix":"socrates"}}`

	assert.Equal(t, input, string(ExpandEnv([]byte(input))))
}

func TestExpandEnvEmptyInput(t *testing.T) {
	assert.Equal(t, []byte{}, ExpandEnv([]byte("")))
}
