package research

import (
	"fmt"

	"github.com/agenthost/agenthost-mini/internal/model"
)

// MockBrief is the deterministic stand-in served in development mode when
// the agent cannot be reached.
func MockBrief(company string) model.Brief {
	return model.Brief{
		Overview:   fmt.Sprintf("%s is a technology company operating in the B2B SaaS space. Founded in 2020, they provide enterprise solutions for mid-market companies with a focus on automation and productivity.", company),
		Funding:    "Series A: $10M raised from Sequoia Capital (2022). Total funding: $15M. Current valuation estimated at $50M based on recent private transactions.",
		TechStack:  "React, Node.js, TypeScript, PostgreSQL, AWS (EC2, RDS, S3, Lambda), Redis, Docker. Uses microservices architecture with GraphQL API layer.",
		News:       "Recently announced partnership with Microsoft Azure (Jan 2026) for enterprise distribution. Expanded to European market with London office opening. Hired new VP of Engineering from Google (Dec 2025).",
		PainPoints: "1. Scaling infrastructure costs as customer base grows 2. Customer acquisition in competitive market (CAC increasing) 3. Need for enterprise security certifications (SOC 2, ISO 27001) to close larger deals 4. Technical debt from rapid early development 5. Hiring and retaining senior engineering talent in tight market",
	}
}
