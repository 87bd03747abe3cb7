package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{
		"trace":   "trace",
		"DEBUG":   "debug",
		"info":    "info",
		"warning": "warn",
		"error":   "error",
		"crit":    "crit",
	} {
		lvl, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, LevelString(lvl))
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestModuleGate(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	var buf bytes.Buffer
	require.NoError(t, InitJSONLogger(&buf, "trace"))

	DisableModule(PushMonitoring)
	Debug(PushMonitoring, "hidden", "index", 1)
	assert.Zero(t, buf.Len())

	EnableModules("push_mod, batch_mod")
	defer DisableModule(PushMonitoring)
	defer DisableModule(BatchMonitoring)
	Debug(PushMonitoring, "shown", "index", 2)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, PushMonitoring, rec["module"])
	assert.True(t, IsModuleEnabled(BatchMonitoring))
}

func TestInfoIgnoresModuleGate(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	var buf bytes.Buffer
	require.NoError(t, InitJSONLogger(&buf, "info"))
	DisableModule(RegistryMonitoring)
	Info(RegistryMonitoring, "root registered")
	assert.Contains(t, buf.String(), "root registered")
}
