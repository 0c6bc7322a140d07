package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/agenthost/agenthost-mini/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertComplete(t *testing.T, b model.Brief) {
	t.Helper()
	assert.NotEmpty(t, b.Overview)
	assert.NotEmpty(t, b.Funding)
	assert.NotEmpty(t, b.TechStack)
	assert.NotEmpty(t, b.News)
	assert.NotEmpty(t, b.PainPoints)
}

func TestNormalize_AlwaysComplete(t *testing.T) {
	inputs := []string{
		"",
		"Just some random text without any structure",
		"```json\n{invalid json}\n```",
		"{\"overview\":\"Test\"}",
		"```json\n[1,2,3]\n```",
		"{ unbalanced",
	}
	for _, in := range inputs {
		assertComplete(t, Normalize(in))
	}
}

func TestNormalize_EmptyIsPlaceholders(t *testing.T) {
	b, src := NormalizeWithSource("")
	assert.Equal(t, SourceSections, src)
	assert.Equal(t, model.Brief{}.FillPlaceholders(), b)
}

func TestNormalize_FencedBlockRoundTrip(t *testing.T) {
	want := model.Brief{
		Overview:   "Stripe is a payment processing platform",
		Funding:    "Series I: $6.5B (2023)",
		TechStack:  "Ruby, Go, JavaScript, AWS",
		News:       "Launched stablecoin accounts",
		PainPoints: "1. Regulation\n2. Fraud at scale",
	}
	b, err := json.Marshal(want)
	require.NoError(t, err)

	got, src := NormalizeWithSource("Here is the research:\n```json\n" + string(b) + "\n```\nLet me know if you need more.")
	assert.Equal(t, SourceFencedJSON, src)
	assert.Equal(t, want, got)
}

func TestNormalize_FencedBlockWinsOverLaterBraces(t *testing.T) {
	in := "```json\n{\"overview\":\"from block\"}\n```\nand also {\"overview\":\"from prose\"}"
	got, src := NormalizeWithSource(in)
	assert.Equal(t, SourceFencedJSON, src)
	assert.Equal(t, "from block", got.Overview)
}

func TestNormalize_RawObject(t *testing.T) {
	in := `{"overview":"Test","funding":"$10M","techStack":"React","news":"Recent","painPoints":"Challenges"}`
	got, src := NormalizeWithSource(in)
	assert.Equal(t, SourceRawJSON, src)
	assert.Equal(t, model.Brief{
		Overview: "Test", Funding: "$10M", TechStack: "React", News: "Recent", PainPoints: "Challenges",
	}, got)
}

func TestNormalize_RawObjectInsideProse(t *testing.T) {
	in := "Sure! {\"overview\": \"Acme makes anvils\", \"pain_points\": [\"Coyotes\", \"Gravity\"]} Hope this helps."
	got, src := NormalizeWithSource(in)
	assert.Equal(t, SourceRawJSON, src)
	assert.Equal(t, "Acme makes anvils", got.Overview)
	assert.Equal(t, "Coyotes\nGravity", got.PainPoints)
	assert.Equal(t, model.PlaceholderFunding, got.Funding)
}

func TestNormalize_MalformedFencedFallsBackToSections(t *testing.T) {
	got, src := NormalizeWithSource("```json\n{invalid json}\n```")
	assert.Equal(t, SourceSections, src)
	assert.Equal(t, model.PlaceholderOverview, got.Overview)
}

func TestNormalize_NonStringValues(t *testing.T) {
	got := Normalize(`{"overview":"x","funding":{"total":"$15M"},"techStack":["Go",1],"news":null,"painPoints":42}`)
	assert.Equal(t, `{"total":"$15M"}`, got.Funding)
	assert.Equal(t, `["Go",1]`, got.TechStack)
	assert.Equal(t, model.PlaceholderNews, got.News)
	assert.Equal(t, "42", got.PainPoints)
}

func TestNormalize_Sections(t *testing.T) {
	in := `
        Overview: This is a test company
        Funding: Series A $10M
        Tech Stack: React, Node.js
        News: Recent product launch
        Pain Points: Scaling challenges
      `
	got, src := NormalizeWithSource(in)
	assert.Equal(t, SourceSections, src)
	assert.Equal(t, "This is a test company", got.Overview)
	assert.Equal(t, "Series A $10M", got.Funding)
	assert.Equal(t, "React, Node.js", got.TechStack)
	assert.Equal(t, "Recent product launch", got.News)
	assert.Equal(t, "Scaling challenges", got.PainPoints)
}

func TestNormalize_SectionContinuationLines(t *testing.T) {
	in := "Overview: Acme builds rockets.\nThey were founded in 1949.\nFunding: none\n\nChallenges:\nsupply chain\nhiring"
	got := Normalize(in)
	assert.Equal(t, "Acme builds rockets.\nThey were founded in 1949.", got.Overview)
	assert.Equal(t, "none", got.Funding)
	assert.Equal(t, "supply chain\nhiring", got.PainPoints)
	assert.Equal(t, model.PlaceholderTechStack, got.TechStack)
}

func TestNormalize_SectionKeepsMultiWordProseLines(t *testing.T) {
	in := "Funding: Total raised $15M\nSeries B: $10M led by Sequoia\nSeries A: $5M\n\nNews: launched X"
	got := Normalize(in)
	assert.Equal(t, "Total raised $15M\nSeries B: $10M led by Sequoia\nSeries A: $5M", got.Funding)
	assert.Equal(t, "launched X", got.News)
}

func TestNormalize_SectionStopsAtTwoWordFieldLabel(t *testing.T) {
	in := "Funding: Seed $2M\nfrom angels\nTech Stack: Go, Postgres\nPain Points: hiring"
	got := Normalize(in)
	assert.Equal(t, "Seed $2M\nfrom angels", got.Funding)
	assert.Equal(t, "Go, Postgres", got.TechStack)
	assert.Equal(t, "hiring", got.PainPoints)
}

func TestNormalize_SectionSynonymsCaseInsensitive(t *testing.T) {
	got := Normalize("TECHNOLOGY - Kubernetes and Postgres")
	assert.Equal(t, "- Kubernetes and Postgres", got.TechStack)
}

func TestRun_CustomChain(t *testing.T) {
	never := Strategy{Name: "never", Parse: func(string) (model.Brief, bool) { return model.Brief{}, false }}
	b, src := Run([]Strategy{never}, "anything")
	assert.Empty(t, src)
	assert.Equal(t, model.Brief{}.FillPlaceholders(), b)
}
