package runner

import (
	"regexp"
	"strings"
)

// Kind is the classification of one chunk of subprocess output.
type Kind int

const (
	// KindUnclassified marks chunks that are logged only.
	KindUnclassified Kind = iota
	// KindError marks chunks carrying the literal error token.
	KindError
	// KindProgress marks chunks carrying one or more percent tokens.
	KindProgress
	// KindDetail marks free-text status chunks such as "Cloning into '...'".
	KindDetail
)

// Classification is the result of classifying one raw output chunk.
type Classification struct {
	Kind Kind
	// Text is the raw chunk for KindError and KindDetail.
	Text string
	// Percent is the last percent token in the chunk for KindProgress.
	Percent string
}

var (
	// The word "Error" as a whole token, case-sensitive. Git and its remote
	// helpers emit it on fatal conditions while ordinary progress lines
	// never contain it capitalized as a standalone word.
	errorMarkerPattern = regexp.MustCompile(`\bError\b`)

	// Percent tokens: digits, optional decimal part, percent sign.
	percentPattern = regexp.MustCompile(`\d+(?:\.\d+)?%`)
)

// Classify categorizes one chunk of git output. Chunks are matched exactly
// as received; boundaries need not align with lines. Error detection takes
// priority over progress detection. When several percent tokens appear in
// one chunk, only the last one is kept (git reports multiple files per
// line, the last token is the current one).
func Classify(chunk string) Classification {
	if errorMarkerPattern.MatchString(chunk) {
		return Classification{Kind: KindError, Text: chunk}
	}
	if matches := percentPattern.FindAllString(chunk, -1); len(matches) > 0 {
		return Classification{Kind: KindProgress, Percent: matches[len(matches)-1]}
	}
	if strings.Contains(chunk, "Cloning into") {
		return Classification{Kind: KindDetail, Text: chunk}
	}
	return Classification{Kind: KindUnclassified, Text: chunk}
}
