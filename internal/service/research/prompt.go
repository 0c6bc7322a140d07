package research

import "fmt"

const promptTemplate = `Research %s and provide the following information in JSON format:

{
  "overview": "Brief company description (2-3 sentences covering what they do, industry, founding year if known)",
  "funding": "Funding rounds, investors, total raised, current valuation (if available). If not available, state 'Funding information not publicly available'",
  "techStack": "Technologies, frameworks, languages, cloud providers they use. If not available, infer based on industry/job postings",
  "news": "Recent news, announcements, product launches, partnerships from last 3 months. Focus on significant events only",
  "painPoints": "3-5 likely pain points, challenges, or needs based on company stage, industry, and recent activity. Be specific and actionable for sales outreach"
}

Use web search to gather accurate, up-to-date information. If specific data is unavailable, state that clearly rather than guessing. Be concise but informative.`

// Prompt builds the agent instruction for company.
func Prompt(company string) string {
	return fmt.Sprintf(promptTemplate, company)
}
