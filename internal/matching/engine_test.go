package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeengage/jobrouting/internal/domain"
)

func company(name string, provider domain.ProviderType, active bool, skills ...domain.CompanySkill) domain.Company {
	return domain.Company{
		ID:           uuid.New(),
		Name:         name,
		IsActive:     active,
		ProviderType: provider,
		Skills:       skills,
	}
}

func skill(name string, level domain.SkillLevel, primary bool) domain.CompanySkill {
	return domain.CompanySkill{Name: name, Level: level, IsPrimary: primary}
}

func TestRankScoring(t *testing.T) {
	engine := NewEngine()

	req := Requirements{
		RequiredSkills: []string{"plumbing", "electrical"},
		SkillLevels: domain.SkillLevels{
			"plumbing":   domain.SkillLevelIntermediate,
			"electrical": domain.SkillLevelBasic,
		},
	}

	full := company("FullMatch", domain.ProviderMock, true,
		skill("plumbing", domain.SkillLevelExpert, true),
		skill("electrical", domain.SkillLevelIntermediate, false),
	)
	partial := company("PartialMatch", domain.ProviderNone, true,
		skill("plumbing", domain.SkillLevelIntermediate, false),
	)
	none := company("NoMatch", domain.ProviderMock, true,
		skill("hvac", domain.SkillLevelExpert, true),
	)

	matches := engine.Rank(req, []domain.Company{partial, none, full})
	require.Len(t, matches, 2)

	// plumbing: 3.0 match + 0.5 exceeds + 1.5 primary; electrical: 3.0 + 0.5
	// exceeds; flat: 0.3 provider + 0.5 active.
	assert.Equal(t, "FullMatch", matches[0].CompanyName)
	assert.InDelta(t, 9.3, matches[0].Score, 1e-9)
	assert.ElementsMatch(t, []string{"plumbing", "electrical"}, matches[0].MatchedSkills)
	assert.Empty(t, matches[0].MissingSkills)

	// plumbing: 3.0 match, level equal so no bonus; flat: 0.5 active.
	assert.Equal(t, "PartialMatch", matches[1].CompanyName)
	assert.InDelta(t, 3.5, matches[1].Score, 1e-9)
	assert.Equal(t, []string{"electrical"}, matches[1].MissingSkills)
}

func TestRankExcludesRequestingCompany(t *testing.T) {
	engine := NewEngine()

	requester := company("Requester", domain.ProviderMock, true,
		skill("plumbing", domain.SkillLevelExpert, true))
	other := company("Other", domain.ProviderMock, true,
		skill("plumbing", domain.SkillLevelBasic, false))

	req := Requirements{
		RequiredSkills:    []string{"plumbing"},
		RequestingCompany: requester.ID,
	}

	matches := engine.Rank(req, []domain.Company{requester, other})
	require.Len(t, matches, 1)
	assert.Equal(t, other.ID, matches[0].CompanyID)
}

func TestRankExcludesZeroSkillMatches(t *testing.T) {
	engine := NewEngine()

	// Active with a provider but no overlapping skill: flat bonuses alone must
	// not put a company on the list.
	irrelevant := company("Irrelevant", domain.ProviderServiceTitan, true,
		skill("roofing", domain.SkillLevelExpert, true))

	matches := engine.Rank(Requirements{RequiredSkills: []string{"plumbing"}},
		[]domain.Company{irrelevant})
	assert.Empty(t, matches)
}

func TestRankTieBreaksOnCompanyID(t *testing.T) {
	engine := NewEngine()

	a := company("A", domain.ProviderMock, true, skill("plumbing", domain.SkillLevelBasic, false))
	b := company("B", domain.ProviderMock, true, skill("plumbing", domain.SkillLevelBasic, false))

	req := Requirements{RequiredSkills: []string{"plumbing"}}

	first := engine.Rank(req, []domain.Company{a, b})
	second := engine.Rank(req, []domain.Company{b, a})

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.Equal(t, first[0].CompanyID, second[0].CompanyID)
	assert.Equal(t, first[1].CompanyID, second[1].CompanyID)
	assert.True(t, first[0].CompanyID.String() < first[1].CompanyID.String())
}

func TestBest(t *testing.T) {
	engine := NewEngine()

	t.Run("returns the top match", func(t *testing.T) {
		strong := company("Strong", domain.ProviderMock, true,
			skill("plumbing", domain.SkillLevelExpert, true))
		weak := company("Weak", domain.ProviderNone, false,
			skill("plumbing", domain.SkillLevelBasic, false))

		best, ok := engine.Best(Requirements{RequiredSkills: []string{"plumbing"}},
			[]domain.Company{weak, strong})
		require.True(t, ok)
		assert.Equal(t, strong.ID, best.CompanyID)
	})

	t.Run("reports no match", func(t *testing.T) {
		_, ok := engine.Best(Requirements{RequiredSkills: []string{"plumbing"}}, nil)
		assert.False(t, ok)
	})
}
