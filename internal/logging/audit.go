package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Audit records operation events as JSON lines. It never receives secrets,
// passphrases or challenge responses; callers pass identifiers only. Every
// line of one process carries the same run_id.
type Audit struct {
	logger *zap.Logger
	closer io.Closer
}

// NewAudit opens (or creates, mode 0600) an append-only audit log at path.
// An empty path yields a no-op audit.
func NewAudit(path string) (*Audit, error) {
	if path == "" {
		return NopAudit(), nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return newAudit(zapcore.AddSync(f), f), nil
}

// NewAuditWithWriter builds an audit logger over w, mainly for tests.
func NewAuditWithWriter(w io.Writer) *Audit {
	return newAudit(zapcore.AddSync(w), nil)
}

// NopAudit discards every event.
func NopAudit() *Audit {
	return &Audit{logger: zap.NewNop()}
}

func newAudit(ws zapcore.WriteSyncer, closer io.Closer) *Audit {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, zap.InfoLevel)
	return &Audit{
		logger: zap.New(core).With(
			zap.String("component", "ykvc"),
			zap.String("run_id", uuid.NewString()),
		),
		closer: closer,
	}
}

// Event records a successful operation.
func (a *Audit) Event(operation string, fields ...zap.Field) {
	a.logger.Info(operation, fields...)
}

// Failure records a failed operation together with its error kind.
func (a *Audit) Failure(operation string, kind string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("kind", kind), zap.Error(err))
	a.logger.Warn(operation, fields...)
}

// Close flushes and closes the underlying file, if any.
func (a *Audit) Close() error {
	_ = a.logger.Sync()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
