package normalizer

import (
	"regexp"
	"strings"

	"github.com/agenthost/agenthost-mini/internal/model"
)

var (
	sectionOverview   = sectionPattern("overview")
	sectionFunding    = sectionPattern("funding")
	sectionTechStack  = sectionPattern("tech stack|technology")
	sectionNews       = sectionPattern("news|recent")
	sectionPainPoints = sectionPattern("pain points|challenges")

	// a line that opens another section: one word, or one of the two-word
	// field labels. "Series B: $10M" is continuation text.
	labelLine = regexp.MustCompile(`^(?:\w+|(?i:tech stack|pain points)):`)
)

func sectionPattern(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:` + labels + `)[:\s]*([^\n]+)`)
}

// parseSections reads "Label: text" prose. It always succeeds.
func parseSections(raw string) (model.Brief, bool) {
	return model.Brief{
		Overview:   extractSection(raw, sectionOverview),
		Funding:    extractSection(raw, sectionFunding),
		TechStack:  extractSection(raw, sectionTechStack),
		News:       extractSection(raw, sectionNews),
		PainPoints: extractSection(raw, sectionPainPoints),
	}, true
}

// extractSection returns the text after the first label match: the rest of
// that line plus following non-empty lines up to the next label.
func extractSection(text string, re *regexp.Regexp) string {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return ""
	}
	lines := []string{strings.TrimSpace(text[loc[2]:loc[3]])}

	rest := text[loc[1]:]
	for strings.HasPrefix(rest, "\n") {
		rest = rest[1:]
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i]
		}
		trimmed := strings.TrimSpace(line)
		if line == "" || labelLine.MatchString(trimmed) {
			break
		}
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
		rest = rest[len(line):]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
