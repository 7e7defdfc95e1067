package eod

import (
	"market-signal-bot/internal/interfaces"
)

// NewSummarizer reads journals written under dir.
func NewSummarizer(dir string) interfaces.EodSummarizer {
	return &eodSummarizer{dir: dir}
}
