package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope used for the OTel log bridge.
const ServiceName = "olympus-console"

// Swapped out by tests.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager owns the process logger and the sinks behind it.
type SlogManager struct {
	logger  *slog.Logger
	otelLP  *sdklog.LoggerProvider
	graylog io.WriteCloser
	extra   ContextProvider
}

// NewSlogManager returns a manager whose Logger is slog.Default until Setup.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case. Unknown names mean info.
func parseLevel(name string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// EnableGraylog ships every record to a Graylog GELF UDP input. Call before Setup.
func (m *SlogManager) EnableGraylog(address string) error {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return fmt.Errorf("graylog writer for %s: %w", address, err)
	}
	m.graylog = w
	return nil
}

// SetContextProvider adds dynamic attributes to every record. Call before Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.extra = p
}

func utcTimestamps(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup builds the handler chain: text to out (stdout when nil), JSON to
// Graylog when enabled and the OTel bridge when lp is non-nil.
func (m *SlogManager) Setup(out io.Writer, level string, lp *sdklog.LoggerProvider) {
	if out == nil {
		out = osStdout
	}
	m.otelLP = lp
	opts := &slog.HandlerOptions{Level: parseLevel(level), ReplaceAttr: utcTimestamps}

	sinks := []slog.Handler{slog.NewTextHandler(out, opts)}
	if m.graylog != nil {
		sinks = append(sinks, slog.NewJSONHandler(m.graylog, opts))
	}
	if lp != nil {
		sinks = append(sinks, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(lp)))
	}

	var h slog.Handler = NewMultiHandler(sinks...)
	if m.extra != nil {
		h = NewContextHandler(h, m.extra)
	}
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level, "graylog", m.graylog != nil, "otel", lp != nil)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records to their exporters.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.otelLP == nil {
		return nil
	}
	return m.otelLP.ForceFlush(ctx)
}

// Close flushes and releases the Graylog writer.
func (m *SlogManager) Close(ctx context.Context) error {
	err := m.Flush(ctx)
	if m.graylog != nil {
		err = errors.Join(err, m.graylog.Close())
		m.graylog = nil
	}
	return err
}
