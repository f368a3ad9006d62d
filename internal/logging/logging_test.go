package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_LevelAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "engine.log")
	require.NoError(t, Init("debug", path, false))
	t.Cleanup(func() { Set(nil) })

	assert.Equal(t, logrus.DebugLevel, Get().GetLevel())

	Component("gpu").Debug("kernel rebuilt")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kernel rebuilt")
	assert.Contains(t, string(data), "component=gpu")
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init("chatty", "", false))
	t.Cleanup(func() { Set(nil) })

	assert.Equal(t, logrus.InfoLevel, Get().GetLevel())
}

func TestSet(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	Set(l)
	t.Cleanup(func() { Set(nil) })

	Component("registry").Info("registered")
	assert.Contains(t, buf.String(), "registered")
}

func TestGet_Default(t *testing.T) {
	Set(nil)
	assert.NotNil(t, Get())
	assert.Equal(t, logrus.WarnLevel, Get().GetLevel())
}
