package model

// Brief is the normalized company research record returned to callers.
type Brief struct {
	Overview   string `json:"overview"`
	Funding    string `json:"funding"`
	TechStack  string `json:"techStack"`
	News       string `json:"news"`
	PainPoints string `json:"painPoints"`
}

// Placeholders used when a field could not be recovered from the agent reply.
const (
	PlaceholderOverview   = "Information not available"
	PlaceholderFunding    = "Funding information not publicly available"
	PlaceholderTechStack  = "Tech stack information not available"
	PlaceholderNews       = "No recent news available"
	PlaceholderPainPoints = "Pain points analysis not available"
)

// FillPlaceholders replaces empty fields with their placeholder text.
func (b Brief) FillPlaceholders() Brief {
	if b.Overview == "" {
		b.Overview = PlaceholderOverview
	}
	if b.Funding == "" {
		b.Funding = PlaceholderFunding
	}
	if b.TechStack == "" {
		b.TechStack = PlaceholderTechStack
	}
	if b.News == "" {
		b.News = PlaceholderNews
	}
	if b.PainPoints == "" {
		b.PainPoints = PlaceholderPainPoints
	}
	return b
}
