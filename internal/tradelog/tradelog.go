// Package tradelog appends signals and their outcomes to a daily JSON-lines
// journal. The journal is write-only from the bot's point of view; eod reads it.
package tradelog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"market-signal-bot/internal/types"
)

const (
	EventSignal  = "signal"
	EventOutcome = "outcome"

	fileExt = ".jsonl"
)

// Dir returns the journal directory, TRADER_LOG_DIR or ./logs.
func Dir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// DailyPath is the journal file holding records for t's UTC date.
func DailyPath(dir string, t time.Time) string {
	return filepath.Join(dir, t.UTC().Format("2006-01-02")+fileExt)
}

type clock struct{ now func() time.Time }

func (c clock) Now() time.Time                         { return c.now().UTC() }
func (c clock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }

type Journal struct {
	mu   sync.Mutex
	dir  string
	now  func() time.Time
	day  string
	file *os.File
	log  *zap.Logger
}

func NewJournal(dir string, now func() time.Time) *Journal {
	if now == nil {
		now = time.Now
	}
	return &Journal{dir: dir, now: now}
}

func (j *Journal) RecordSignal(sig types.PendingSignal, threshold int, reason string) error {
	return j.write(EventSignal,
		zap.String("record_id", uuid.NewString()),
		zap.String("signal_id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("entry", sig.Entry),
		zap.Int("confidence", sig.Confidence),
		zap.Int("threshold", threshold),
		zap.String("reason", reason),
	)
}

func (j *Journal) RecordOutcome(sig types.PendingSignal, outcome types.Outcome, exit, winRate float64) error {
	return j.write(EventOutcome,
		zap.String("record_id", uuid.NewString()),
		zap.String("signal_id", sig.ID),
		zap.String("symbol", sig.Symbol),
		zap.String("direction", string(sig.Direction)),
		zap.Float64("entry", sig.Entry),
		zap.Float64("exit", exit),
		zap.String("result", string(outcome)),
		zap.Float64("win_rate", winRate),
		zap.Duration("held", j.now().Sub(sig.CreatedAt)),
	)
}

func (j *Journal) write(event string, fields ...zap.Field) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.rotate(j.now()); err != nil {
		return err
	}
	j.log.Info(event, fields...)
	return j.log.Sync()
}

// rotate opens the file for now's date when the date has changed.
func (j *Journal) rotate(now time.Time) error {
	day := now.UTC().Format("2006-01-02")
	if j.log != nil && day == j.day {
		return nil
	}
	if j.file != nil {
		_ = j.log.Sync()
		_ = j.file.Close()
	}
	p := DailyPath(j.dir, now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.InfoLevel)
	j.file, j.day = f, day
	j.log = zap.New(core, zap.WithClock(clock{now: j.now}))
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	_ = j.log.Sync()
	err := j.file.Close()
	j.file, j.log, j.day = nil, nil, ""
	return err
}

// CompressOlder gzips journal files last modified more than retentionDays ago.
func CompressOlder(dir string, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != fileExt {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
