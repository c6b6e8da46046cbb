package logsink_test

import (
	"bytes"
	"testing"

	"github.com/lambda-feedback/pipetask/internal/logsink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSink_LogsLineWithTag(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	sink := logsink.NewZapSink(zap.New(core))
	sink.Line("webpack", "compiled successfully")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "compiled successfully", entries[0].Message)
	assert.Equal(t, "webpack", entries[0].ContextMap()["tag"])
}

func TestPrefixSink_PrefixesTag(t *testing.T) {
	var buf bytes.Buffer

	sink := logsink.NewPrefixSink(&buf)
	sink.Line("mocha", "3 passing")
	sink.Line("mocha", "")

	assert.Equal(t, "[mocha] 3 passing\n[mocha] \n", buf.String())
}

func TestMemory_TextFiltersByTag(t *testing.T) {
	sink := logsink.NewMemory()
	sink.Line("a", "one")
	sink.Line("b", "two")
	sink.Line("a", "three")

	assert.Equal(t, "one\nthree", sink.Text("a"))
	assert.Equal(t, "two", sink.Text("b"))
	assert.Equal(t, "", sink.Text("c"))
}
