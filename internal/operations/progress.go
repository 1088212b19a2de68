package operations

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ProgressUpdate is a snapshot of a tracked run
type ProgressUpdate struct {
	Step     string  `json:"step"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	ETA      string  `json:"eta,omitempty"`
}

// ProgressTracker follows the checkpoints of one consolidation run. It
// satisfies dataprocessing.ProgressReporter.
type ProgressTracker struct {
	Step      string
	StartTime time.Time
	Fraction  float64
	Message   string

	logger   *slog.Logger
	onUpdate func(ProgressUpdate)
	mu       sync.Mutex
}

// NewProgressTracker creates a new progress tracker. A nil logger disables
// checkpoint logging.
func NewProgressTracker(step string, logger *slog.Logger) *ProgressTracker {
	return &ProgressTracker{
		Step:      step,
		StartTime: time.Now(),
		logger:    logger,
	}
}

// OnUpdate registers a callback invoked after every report
func (p *ProgressTracker) OnUpdate(fn func(ProgressUpdate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// Report records a checkpoint. Fractions are clamped to [0, 1] and never move
// backwards. Named checkpoints are logged at debug level.
func (p *ProgressTracker) Report(fraction float64, message string) {
	p.mu.Lock()
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction > p.Fraction {
		p.Fraction = fraction
	}
	changed := message != "" && message != p.Message
	if message != "" {
		p.Message = message
	}
	update := ProgressUpdate{
		Step:     p.Step,
		Progress: p.Fraction * 100,
		Message:  p.Message,
		ETA:      p.etaLocked(),
	}
	fn := p.onUpdate
	p.mu.Unlock()

	if changed && p.logger != nil {
		p.logger.Debug("consolidation progress",
			slog.String("step", p.Step),
			slog.Float64("progress", update.Progress),
			slog.String("message", update.Message),
			slog.String("eta", update.ETA),
		)
	}
	if fn != nil {
		fn(update)
	}
}

// GetProgress returns the current progress state
func (p *ProgressTracker) GetProgress() (percentage float64, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Fraction * 100, p.Message
}

// GetETA calculates the estimated time remaining
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.etaLocked()
}

func (p *ProgressTracker) etaLocked() string {
	if p.Fraction <= 0 {
		return "calculating..."
	}
	if p.Fraction >= 1 {
		return "0 seconds"
	}

	elapsed := time.Since(p.StartTime).Seconds()
	remaining := elapsed / p.Fraction * (1 - p.Fraction)

	return formatSeconds(remaining)
}

// IsComplete returns true once the run reported 1
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Fraction >= 1
}

// GetElapsedTime returns the elapsed time since start
func (p *ProgressTracker) GetElapsedTime() time.Duration {
	return time.Since(p.StartTime)
}

// GetElapsedTimeString returns a formatted elapsed time string
func (p *ProgressTracker) GetElapsedTimeString() string {
	return formatSeconds(p.GetElapsedTime().Seconds())
}

func formatSeconds(s float64) string {
	switch {
	case s < 60:
		return fmt.Sprintf("%.0f seconds", s)
	case s < 3600:
		return fmt.Sprintf("%.1f minutes", s/60)
	default:
		return fmt.Sprintf("%.1f hours", s/3600)
	}
}
