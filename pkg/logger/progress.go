package logger

import (
	"sync"
	"time"
)

// StageTracker logs the start and end of each named stage of a run together
// with its duration and any row counts the stage reports.
type StageTracker struct {
	logger    Logger
	operation string
	startTime time.Time
	stages    []StageTiming
	mutex     sync.Mutex
}

// StageTiming records how long a finished stage took
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Fields   Fields        `json:"fields,omitempty"`
}

// NewStageTracker creates a tracker for one operation
func NewStageTracker(log Logger, operation string) *StageTracker {
	if log == nil {
		log = GetGlobalLogger()
	}
	return &StageTracker{
		logger:    log.WithComponent("stages").WithField("operation", operation),
		operation: operation,
		startTime: time.Now(),
	}
}

// Begin logs the start of a stage and returns the function that ends it
func (s *StageTracker) Begin(stage string) func(fields Fields) {
	started := time.Now()
	s.logger.WithField("stage", stage).Debug("Stage started")

	return func(fields Fields) {
		elapsed := time.Since(started)

		s.mutex.Lock()
		s.stages = append(s.stages, StageTiming{Name: stage, Duration: elapsed, Fields: fields})
		s.mutex.Unlock()

		entry := s.logger.WithField("stage", stage).WithField("duration", elapsed.String())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Info("Stage completed")
	}
}

// Stages returns the finished stages in completion order
func (s *StageTracker) Stages() []StageTiming {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	out := make([]StageTiming, len(s.stages))
	copy(out, s.stages)
	return out
}

// Complete logs the total duration of the operation
func (s *StageTracker) Complete() time.Duration {
	total := time.Since(s.startTime)
	s.logger.WithFields(Fields{
		"stages":   len(s.Stages()),
		"duration": total.String(),
	}).Info("Operation completed")
	return total
}

// CompleteWithError logs the failure of the operation
func (s *StageTracker) CompleteWithError(err error) time.Duration {
	total := time.Since(s.startTime)
	s.logger.WithError(err).WithFields(Fields{
		"stages":   len(s.Stages()),
		"duration": total.String(),
	}).Warn("Operation stopped")
	return total
}
