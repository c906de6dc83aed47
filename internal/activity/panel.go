package activity

import (
	"sync"

	"go.uber.org/zap"
)

// LogPanel is an InfoPanel that writes every message to a logger and keeps
// the message history for later inspection.
type LogPanel struct {
	logger *zap.Logger

	mu      sync.Mutex
	history []string
}

// NewLogPanel creates a LogPanel.
//
// Precondition: logger must be non-nil.
func NewLogPanel(logger *zap.Logger) *LogPanel {
	return &LogPanel{logger: logger.Named("info")}
}

// Show implements InfoPanel.
func (p *LogPanel) Show(message string) {
	p.mu.Lock()
	p.history = append(p.history, message)
	p.mu.Unlock()

	p.logger.Info(message)
}

// Current returns the last message shown, or "" if none.
func (p *LogPanel) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return ""
	}
	return p.history[len(p.history)-1]
}

// History returns every message shown, oldest first.
func (p *LogPanel) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.history...)
}
