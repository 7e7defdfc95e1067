package interfaces

import "time"

type EodSummarizer interface {
	SummarizeSession(start, end time.Time) (csvPath string, err error)
	SummarizeDay(t time.Time) (csvPath string, err error)
}
