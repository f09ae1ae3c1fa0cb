package log

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLoggerWithFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Level:  "warn",
		Format: "json",
		File: FileLogConfig{
			RootPath: dir,
			Filename: "ledgerwire.log",
		},
	}
	lg, props, err := InitLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, lg)
	assert.Equal(t, zapcore.WarnLevel, props.Level.Level())
	assert.Equal(t, defaultLogMaxSize, cfg.File.MaxSize)

	lg.Warn("schema conflict", FieldDescriptor("T@1"))
	require.NoError(t, lg.Sync())
	assert.FileExists(t, filepath.Join(dir, "ledgerwire.log"))
}

func TestInitLoggerRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, _, err := InitLogger(&Config{File: FileLogConfig{RootPath: filepath.Dir(dir), Filename: filepath.Base(dir)}})
	assert.Error(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	_, _, err := InitLogger(&Config{Level: "loud", Stdout: true})
	assert.Error(t, err)
}

func TestCtxLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prevL, prevP := L(), _globalP.Load().(*ZapProperties)
	defer ReplaceGlobals(prevL, prevP)
	ReplaceGlobals(zap.New(core), &ZapProperties{Core: core, Level: zap.NewAtomicLevelAt(zapcore.DebugLevel)})

	ctx := WithModule(context.Background(), "serialization")
	Ctx(ctx).Info("resolved", FieldType(reflect.TypeOf(0)))
	Ctx(nil).Debug("no context") //nolint:staticcheck
	With(FieldComponent("factory")).Warn("rejected")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "serialization", entries[0].ContextMap()[FieldNameModule])
	assert.Equal(t, "int", entries[0].ContextMap()[FieldNameType])
	assert.Equal(t, "factory", entries[2].ContextMap()[FieldNameComponent])
}

func TestSetLevel(t *testing.T) {
	_, restore := InitTestLogger(t, zapcore.InfoLevel)
	defer restore()

	SetLevel(zapcore.ErrorLevel)
	assert.Equal(t, zapcore.ErrorLevel, GetLevel())
	assert.Equal(t, "<nil>", FieldType(nil).String)
}
