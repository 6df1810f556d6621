package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerRedacts(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false, "debug")

	log.Info("login attempt", "email", "a@x.com", "password", "Valid123", "code", "123456")

	out := buf.String()
	assert.Contains(t, out, "a@x.com")
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, "Valid123")
	assert.NotContains(t, out, "123456")
}

func TestJSONHandlerRedacts(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true, "info")

	log.With("refresh_token", "eyJhbGciOi").Info("renewed", "account_id", "acc-1")
	log.Debug("hidden at info level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, redacted, entry["refresh_token"])
	assert.Equal(t, "acc-1", entry["account_id"])
	assert.Equal(t, "renewed", entry["msg"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("debug").String())
	assert.Equal(t, "WARN", ParseLevel("WARNING").String())
	assert.Equal(t, "INFO", ParseLevel("nonsense").String())
}
