package answer

import (
	"regexp"
	"strings"
)

var (
	placeholderCitations = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\[Source\s+\d+\]`),
		regexp.MustCompile(`(?i)\[Table\s+Data\]`),
		regexp.MustCompile(`(?i)\(Source\s+\d+(?:,\s*Source\s+\d+)*\)`),
		regexp.MustCompile(`(?i)\(Evidence\s+\d+(?:,\s*Evidence\s+\d+)*\)`),
		regexp.MustCompile(`(?i)\[Evidence\s+\d+\]`),
		regexp.MustCompile(`(?i)\bEvidence\s+\d+\b`),
		regexp.MustCompile(`(?i)\(Part\s+\d+(?:,\s*Part\s+\d+)*\)`),
		regexp.MustCompile(`(?i)\[Part\s+\d+\]`),
	}

	answerLabel     = regexp.MustCompile(`(?i)Answer:\s*`)
	trailingLabels  = regexp.MustCompile(`(?i)Source:\s*|Question:\s*|Context:\s*`)
	sourceContext   = regexp.MustCompile(`(?im)^Source:\s*Context\s*$`)
	sourceContextIn = regexp.MustCompile(`(?i)Source:\s*Context\s*`)
	sourcesSection  = regexp.MustCompile(`(?is)\n\s*Sources?\s*:.*\z`)
	questionSection = regexp.MustCompile(`(?is)Question:\s*.*`)
	contextLabel    = regexp.MustCompile(`(?im)^Context:\s*$`)
	extraNewlines   = regexp.MustCompile(`\n{3,}`)
	spaceBeforeStop = regexp.MustCompile(`[ \t]+([.,;:!?])`)
	doubleSpaces    = regexp.MustCompile(`(\S)[ \t]{2,}`)

	metaCommentary = []*regexp.Regexp{
		regexp.MustCompile(`(?is)This\s+(?:synthesized\s+)?answer\s+(?:integrates|includes|provides|addresses).*?(?:\n\n|\z)`),
		regexp.MustCompile(`(?is)This\s+response\s+(?:integrates|includes|provides|addresses).*?(?:\n\n|\z)`),
		regexp.MustCompile(`(?is)The\s+(?:above\s+)?answer\s+(?:integrates|includes|provides|addresses).*?(?:\n\n|\z)`),
		regexp.MustCompile(`(?is)Note:\s*This\s+answer.*?(?:\n\n|\z)`),
		regexp.MustCompile(`(?is)In\s+summary,\s*this\s+answer.*?(?:\n\n|\z)`),
	}
)

// Clean removes prompt framing, placeholder citations and meta-commentary
// that models echo into their output.
//
// When the reply contains an "Answer:" label only the text after the last one
// is kept. A trailing "Sources:" section and anything from a "Question:" label
// onwards are dropped.
func Clean(text string) string {
	cleaned := text
	for _, re := range placeholderCitations {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	if parts := answerLabel.Split(cleaned, -1); len(parts) > 1 {
		cleaned = parts[len(parts)-1]
		cleaned = trailingLabels.Split(cleaned, 2)[0]
	}

	cleaned = sourceContext.ReplaceAllString(cleaned, "")
	cleaned = sourceContextIn.ReplaceAllString(cleaned, "")
	cleaned = sourcesSection.ReplaceAllString(cleaned, "")

	for _, re := range metaCommentary {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	cleaned = questionSection.ReplaceAllString(cleaned, "")
	cleaned = contextLabel.ReplaceAllString(cleaned, "")
	cleaned = spaceBeforeStop.ReplaceAllString(cleaned, "$1")
	cleaned = doubleSpaces.ReplaceAllString(cleaned, "$1 ")
	cleaned = extraNewlines.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
