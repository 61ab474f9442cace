// Package matching scores and ranks candidate companies against a job's
// skill requirements. The engine is pure: no I/O, same inputs always produce
// the same ranked list, which is what makes it independently testable.
package matching

import (
	"sort"

	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// Score weights. Additive per company, summed over the job's required skills.
const (
	skillMatchScore    = 3.0 // company declares the required skill at all
	levelExceedsBonus  = 0.5 // declared level exceeds the required level
	primarySkillBonus  = 1.5 // skill is flagged primary for the company
	providerBonus      = 0.3 // company has any provider configured
	activeCompanyBonus = 0.5 // company is active
)

// Requirements are the matching-relevant facts of one job.
type Requirements struct {
	RequiredSkills    []string
	SkillLevels       domain.SkillLevels
	Category          string
	RequestingCompany uuid.UUID
}

// Match is one ranked candidate.
type Match struct {
	CompanyID     uuid.UUID
	CompanyName   string
	Score         float64
	MatchedSkills []string
	MissingSkills []string
	ProviderType  domain.ProviderType
}

// Engine ranks companies for jobs.
type Engine struct{}

// NewEngine creates a matching engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Rank scores every candidate against the requirements and returns matches
// ordered by score descending. Ties break on ascending company ID so the
// ranking is stable across runs. Companies with zero matched skills and the
// requesting company are excluded regardless of flat bonuses.
func (e *Engine) Rank(req Requirements, companies []domain.Company) []Match {
	matches := make([]Match, 0, len(companies))

	for i := range companies {
		company := &companies[i]
		if company.ID == req.RequestingCompany {
			continue
		}

		m := e.score(req, company)
		if len(m.MatchedSkills) == 0 {
			continue
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].CompanyID.String() < matches[j].CompanyID.String()
	})

	return matches
}

// Best returns the top-ranked match, or false when nothing matched.
func (e *Engine) Best(req Requirements, companies []domain.Company) (Match, bool) {
	ranked := e.Rank(req, companies)
	if len(ranked) == 0 {
		return Match{}, false
	}
	return ranked[0], true
}

func (e *Engine) score(req Requirements, company *domain.Company) Match {
	m := Match{
		CompanyID:    company.ID,
		CompanyName:  company.Name,
		ProviderType: company.ProviderType,
	}

	for _, skillName := range req.RequiredSkills {
		skill, ok := company.Skill(skillName)
		if !ok {
			m.MissingSkills = append(m.MissingSkills, skillName)
			continue
		}

		m.MatchedSkills = append(m.MatchedSkills, skillName)
		m.Score += skillMatchScore

		if requiredLevel, ok := req.SkillLevels[skillName]; ok {
			if skill.Level.Rank() > requiredLevel.Rank() {
				m.Score += levelExceedsBonus
			}
		}
		if skill.IsPrimary {
			m.Score += primarySkillBonus
		}
	}

	if company.ProviderType.Configured() {
		m.Score += providerBonus
	}
	if company.IsActive {
		m.Score += activeCompanyBonus
	}

	return m
}
