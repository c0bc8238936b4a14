package log

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerBeforeInit(t *testing.T) {
	l := GetLogger()
	require.NotNil(t, l)
	assert.True(t, l.IsInfoEnabled())
	assert.False(t, l.IsDebugEnabled())
}

func TestInitWritesPattern(t *testing.T) {
	var buf bytes.Buffer
	err := Init(&LoggerConfig{
		Pattern: "[%level] %field %msg",
		Level:   "debug",
		Output:  &buf,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Init(DefaultConfig()) })

	GetLogger().WithFields(map[string]interface{}{"layer": "IPv6", "len": 40}).Debugf("decoded %d bytes", 40)
	assert.Equal(t, "[debug] layer=IPv6,len=40 decoded 40 bytes\n", buf.String())

	buf.Reset()
	GetLogger().WithError(errors.New("boom")).Info("failed")
	assert.Equal(t, "[info] error=boom failed\n", buf.String())
}

func TestInitLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(&LoggerConfig{Pattern: "%msg", Level: "warn", Output: &buf}))
	t.Cleanup(func() { _ = Init(DefaultConfig()) })

	l := GetLogger()
	l.Info("hidden")
	l.Warn("shown")
	assert.Equal(t, "shown\n", buf.String())
	assert.False(t, l.IsInfoEnabled())
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(&LoggerConfig{Level: "chatty", Output: &buf}))
	t.Cleanup(func() { _ = Init(DefaultConfig()) })
	assert.True(t, GetLogger().IsInfoEnabled())
	assert.False(t, GetLogger().IsDebugEnabled())
}

func TestInitFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pktcodec.log")
	require.NoError(t, Init(&LoggerConfig{
		Pattern:  "%level %msg",
		Level:    "info",
		Appender: AppenderFile,
		File:     FileAppenderOpt{Filename: path, MaxSize: 1},
	}))
	t.Cleanup(func() { _ = Init(DefaultConfig()) })

	GetLogger().Info("to file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "info to file\n", string(data))
}

func TestInitRejectsBadAppender(t *testing.T) {
	assert.Error(t, Init(&LoggerConfig{Appender: "kafka"}))
	assert.Error(t, Init(&LoggerConfig{Appender: AppenderFile}))
}

func TestFormatterCaller(t *testing.T) {
	f := &formatter{pattern: "%caller %func", time: DefaultTimeLayout}
	l := logrus.New()
	entry := logrus.NewEntry(l)
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "unknown unknown\n", string(out))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter().Add(&a).Add(failingWriter{}).Add(&b)
	n, err := w.Write([]byte("record"))
	assert.Equal(t, 6, n)
	assert.Error(t, err)
	assert.Equal(t, "record", a.String())
	assert.Equal(t, "record", b.String())
	assert.False(t, strings.Contains(a.String(), "closed"))
}
