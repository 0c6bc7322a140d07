// Package normalizer turns a research agent's free-form reply into a Brief.
//
// Agents do not reliably honor the requested JSON shape: some wrap it in a
// fenced block, some embed a bare object in prose, some answer in plain
// text. Normalize tries each form in order and never fails; fields that
// cannot be recovered get placeholder text.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/tidwall/gjson"
)

const (
	SourceFencedJSON = "fenced_json"
	SourceRawJSON    = "raw_json"
	SourceSections   = "sections"
)

// Strategy is one way of reading a reply. Parse returns ok=false to hand the
// reply to the next strategy.
type Strategy struct {
	Name  string
	Parse func(raw string) (model.Brief, bool)
}

// Chain is the default strategy order.
var Chain = []Strategy{
	{Name: SourceFencedJSON, Parse: parseFencedJSON},
	{Name: SourceRawJSON, Parse: parseRawJSON},
	{Name: SourceSections, Parse: parseSections},
}

// Normalize runs the default chain.
func Normalize(raw string) model.Brief {
	b, _ := NormalizeWithSource(raw)
	return b
}

// NormalizeWithSource also reports which strategy produced the result.
func NormalizeWithSource(raw string) (model.Brief, string) {
	return Run(Chain, raw)
}

// Run applies strategies in order; the first success wins. If none succeeds
// the result is all placeholders and the source is empty.
func Run(chain []Strategy, raw string) (model.Brief, string) {
	for _, s := range chain {
		if b, ok := s.Parse(raw); ok {
			return b.FillPlaceholders(), s.Name
		}
	}
	return model.Brief{}.FillPlaceholders(), ""
}

var (
	fencedBlock = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	braceObject = regexp.MustCompile(`(?s)\{.*\}`)
)

func parseFencedJSON(raw string) (model.Brief, bool) {
	m := fencedBlock.FindStringSubmatch(raw)
	if m == nil {
		return model.Brief{}, false
	}
	return fromJSON(m[1])
}

func parseRawJSON(raw string) (model.Brief, bool) {
	m := braceObject.FindString(raw)
	if m == "" {
		return model.Brief{}, false
	}
	return fromJSON(m)
}

// field names accepted in agent JSON, preferred spelling first
var jsonFields = struct {
	overview, funding, techStack, news, painPoints []string
}{
	overview:   []string{"overview"},
	funding:    []string{"funding"},
	techStack:  []string{"techStack", "tech_stack", "techstack"},
	news:       []string{"news", "recentNews", "recent_news"},
	painPoints: []string{"painPoints", "pain_points", "painpoints"},
}

func fromJSON(s string) (model.Brief, bool) {
	if !gjson.Valid(s) {
		return model.Brief{}, false
	}
	obj := gjson.Parse(s)
	if !obj.IsObject() {
		return model.Brief{}, false
	}
	return model.Brief{
		Overview:   firstField(obj, jsonFields.overview),
		Funding:    firstField(obj, jsonFields.funding),
		TechStack:  firstField(obj, jsonFields.techStack),
		News:       firstField(obj, jsonFields.news),
		PainPoints: firstField(obj, jsonFields.painPoints),
	}, true
}

func firstField(obj gjson.Result, names []string) string {
	for _, n := range names {
		if v := obj.Get(n); v.Exists() {
			if s := text(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// text renders a JSON value for display. String arrays become one item per line.
func text(v gjson.Result) string {
	switch {
	case v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.Str
	case v.IsArray():
		items := v.Array()
		lines := make([]string, 0, len(items))
		for _, it := range items {
			if it.Type != gjson.String {
				return v.Raw
			}
			lines = append(lines, it.Str)
		}
		return strings.Join(lines, "\n")
	case v.IsObject():
		return v.Raw
	default:
		return v.String()
	}
}
