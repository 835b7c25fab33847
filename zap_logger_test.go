package launchbase

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// observedLogger returns a ZapLogger whose entries can be inspected.
func observedLogger(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(level)
	return NewZapLogger(zap.New(core)), recorded
}

func TestNoOpLogger(t *testing.T) {
	var logger Logger = &NoOpLogger{}

	logger.Debug("test message", "key", "value")
	logger.Info("test message", "key", "value")
	logger.Warn("test message", "key", "value")
	logger.Error("test message", "key", "value")

	if orNoOpLogger(nil) == nil {
		t.Fatal("orNoOpLogger(nil) should return a logger")
	}
}

func TestNewProductionZapLogger(t *testing.T) {
	logger, err := NewProductionZapLogger(zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("failed to create production logger: %v", err)
	}

	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "key", "value")

	if err := logger.Sync(); err != nil {
		// Sync can fail on stdout/stderr in tests
		t.Logf("sync returned error: %v", err)
	}
}

func TestNewDevelopmentZapLogger(t *testing.T) {
	logger, err := NewDevelopmentZapLogger(zapcore.DebugLevel)
	if err != nil {
		t.Fatalf("failed to create development logger: %v", err)
	}
	logger.Debug("debug message", "key", "value")
	logger.Warn("warn message", "key", "value")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{"production", LogConfig{Environment: "production", Level: "info"}, false},
		{"development", LogConfig{Environment: "development", Level: "debug"}, false},
		{"empty env", LogConfig{Level: "warn"}, false},
		{"bad level", LogConfig{Environment: "production", Level: "loud"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestZapLoggerMethods(t *testing.T) {
	zapLogger, recorded := observedLogger(zapcore.DebugLevel)

	zapLogger.Debug("debug message", "key", "value")
	zapLogger.Info("info message", "key", "value")
	zapLogger.Warn("warn message", "key", "value")
	zapLogger.Error("error message", "key", "value")

	if recorded.Len() != 4 {
		t.Fatalf("expected 4 log entries, got %d", recorded.Len())
	}

	want := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range recorded.All() {
		if entry.Level != want[i] {
			t.Errorf("entry %d level = %v, want %v", i, entry.Level, want[i])
		}
	}
}

func TestZapLoggerFields(t *testing.T) {
	zapLogger, recorded := observedLogger(zapcore.InfoLevel)

	zapLogger.Info("table created",
		"table", "launchbase_courses",
		"indexes", 3,
		"ok", true,
	)

	if recorded.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", recorded.Len())
	}

	entry := recorded.All()[0]
	if entry.Message != "table created" {
		t.Errorf("message = %q", entry.Message)
	}
	fields := entry.ContextMap()
	if fields["table"] != "launchbase_courses" {
		t.Errorf("table field = %v", fields["table"])
	}
	if fields["indexes"] != int64(3) {
		t.Errorf("indexes field = %v", fields["indexes"])
	}
	if fields["ok"] != true {
		t.Errorf("ok field = %v", fields["ok"])
	}
}

func TestZapLoggerNamed(t *testing.T) {
	zapLogger, recorded := observedLogger(zapcore.InfoLevel)

	zapLogger.Named("selector").Info("memory backend selected")

	if got := recorded.All()[0].LoggerName; got != "selector" {
		t.Errorf("logger name = %q, want selector", got)
	}
}

func TestZapLoggerImplementsInterface(t *testing.T) {
	var _ Logger = &ZapLogger{}
}
