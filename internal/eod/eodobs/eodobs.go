package eodobs

import (
	"context"
	"time"

	"market-signal-bot/internal/interfaces"
	"market-signal-bot/internal/logger"
	"market-signal-bot/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeSession(start, end time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeSession")
	defer span.End()

	window := []any{"start", start.UTC().Format(time.RFC3339), "end", end.UTC().Format(time.RFC3339)}
	logger.InfoSkip(ctx, 1, "Starting session summary", window...)

	csvPath, err := oes.summarizer.SummarizeSession(start, end)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Session summary failed", err, window...)
		return "", err
	}
	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No journal records for session summary", window...)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Session summary written", append(window, "csv_path", csvPath)...)
	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeDay")
	defer span.End()

	csvPath, err := oes.summarizer.SummarizeDay(t)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "EOD summary generation failed", err,
			"date", t.Format("2006-01-02"),
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "EOD summary generated",
		"date", t.Format("2006-01-02"),
		"csv_path", csvPath,
	)
	return csvPath, nil
}
