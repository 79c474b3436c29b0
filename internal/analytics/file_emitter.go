package analytics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/localcontactforms/contactform/internal/common/configtypes"
	"github.com/localcontactforms/contactform/pkg/types"
)

const (
	DefaultMaxSize    = 100 // MB
	DefaultMaxAge     = 30  // days
	DefaultMaxBackups = 10  // files
)

// FileEmitter appends events as JSON lines to a rotated local file.
type FileEmitter struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	logger *zap.Logger
}

func NewFileEmitter(cfg configtypes.EventFileConfig, logger *zap.Logger) (*FileEmitter, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	maxSize := cfg.Rotation.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}
	maxAge := cfg.Rotation.MaxAge
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	maxBackups := cfg.Rotation.MaxBackups
	if maxBackups == 0 {
		maxBackups = DefaultMaxBackups
	}

	return &FileEmitter{
		writer: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    maxSize,
			MaxAge:     maxAge,
			MaxBackups: maxBackups,
			Compress:   cfg.Rotation.Compress,
		},
		logger: logger,
	}, nil
}

func (f *FileEmitter) Emit(event *types.AnalyticsEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("failed to encode analytics event", zap.Error(err))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.writer.Write(append(line, '\n')); err != nil {
		f.logger.Warn("failed to write analytics event to log file",
			zap.Error(err),
			zap.String("tenant_id", event.TenantID))
	}
}

func (f *FileEmitter) Close() error {
	return f.writer.Close()
}
