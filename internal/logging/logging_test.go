package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewFormatter(t *testing.T) {
	_, ok := NewFormatter("").(*logrus.TextFormatter)
	require.True(t, ok)

	_, ok = NewFormatter("JSON").(*logrus.JSONFormatter)
	require.True(t, ok)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"WARN":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")

	log.Debug("hidden")
	log.WithField("prefix", "server").Info("listening")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "listening", entry["msg"])
	require.Equal(t, "server", entry["prefix"])
}
