package utils

import (
	"io"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// Standard progress descriptions
const (
	DescCloning     = "Cloning"
	DescDownloading = "Downloading"
)

// NewCloneProgressBar creates a consistently styled progress bar for a clone
// operation. The bar tracks 0-100 percent; percent tokens reported by git
// drive its position.
func NewCloneProgressBar(description string, w io.Writer) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowCount(),
	}
	if w != nil {
		opts = append(opts, progressbar.OptionSetWriter(w))
	}
	return progressbar.NewOptions(100, opts...)
}

// BarSink is a ProgressSink backed by a terminal progress bar. Report never
// blocks and swallows render errors; a progress failure must never disturb
// the clone itself.
type BarSink struct {
	bar *progressbar.ProgressBar
}

// NewBarSink creates a BarSink writing to w (os.Stderr if nil).
func NewBarSink(description string, w io.Writer) *BarSink {
	return &BarSink{bar: NewCloneProgressBar(description, w)}
}

// Report updates the bar description and, when detail carries a percent
// token, its position.
func (s *BarSink) Report(message, detail string) {
	s.bar.Describe(strings.TrimSpace(message))
	if pct, ok := ParsePercent(detail); ok {
		_ = s.bar.Set(pct)
	}
}

// Finish completes the bar rendering.
func (s *BarSink) Finish() {
	_ = s.bar.Finish()
}

// ParsePercent parses a percent token like "55%" or "99.5%" into a whole
// percent value. Returns false for anything that is not a percent token.
func ParsePercent(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if !strings.HasSuffix(token, "%") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(token, "%"), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
