package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tradeengage/jobrouting/internal/domain"
)

const selectCompanyColumns = `
	id, name, is_active, provider_type, provider_config, created_at, updated_at
`

// GetCompanyByID retrieves a company with its declared skills.
func (s *Store) GetCompanyByID(ctx context.Context, companyID uuid.UUID) (*domain.Company, error) {
	query := `SELECT` + selectCompanyColumns + `FROM companies WHERE id = $1`

	var company domain.Company
	if err := s.db.GetContext(ctx, &company, query, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	skills, err := s.companySkills(ctx, companyID)
	if err != nil {
		return nil, err
	}
	company.Skills = skills

	return &company, nil
}

// ListActiveCompanies returns all active companies with their skills loaded,
// the candidate pool the matching engine ranks.
func (s *Store) ListActiveCompanies(ctx context.Context) ([]domain.Company, error) {
	query := `SELECT` + selectCompanyColumns + `FROM companies WHERE is_active = true ORDER BY id`

	var companies []domain.Company
	if err := s.db.SelectContext(ctx, &companies, query); err != nil {
		return nil, fmt.Errorf("failed to list active companies: %w", err)
	}
	if len(companies) == 0 {
		return companies, nil
	}

	ids := make([]uuid.UUID, len(companies))
	for i := range companies {
		ids[i] = companies[i].ID
	}

	type skillRow struct {
		CompanyID uuid.UUID         `db:"company_id"`
		Name      string            `db:"skill_name"`
		Level     domain.SkillLevel `db:"skill_level"`
		IsPrimary bool              `db:"is_primary"`
	}

	skillQuery, args, err := sqlx.In(
		`SELECT company_id, skill_name, skill_level, is_primary
		 FROM company_skills
		 WHERE company_id IN (?)
		 ORDER BY company_id, skill_name`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build skills query: %w", err)
	}

	var rows []skillRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(skillQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to load company skills: %w", err)
	}

	byCompany := make(map[uuid.UUID][]domain.CompanySkill, len(companies))
	for _, row := range rows {
		byCompany[row.CompanyID] = append(byCompany[row.CompanyID], domain.CompanySkill{
			Name:      row.Name,
			Level:     row.Level,
			IsPrimary: row.IsPrimary,
		})
	}
	for i := range companies {
		companies[i].Skills = byCompany[companies[i].ID]
	}

	return companies, nil
}

func (s *Store) companySkills(ctx context.Context, companyID uuid.UUID) ([]domain.CompanySkill, error) {
	query := `
		SELECT skill_name, skill_level, is_primary
		FROM company_skills
		WHERE company_id = $1
		ORDER BY skill_name
	`

	var skills []domain.CompanySkill
	if err := s.db.SelectContext(ctx, &skills, query, companyID); err != nil {
		return nil, fmt.Errorf("failed to load skills for company %s: %w", companyID, err)
	}
	return skills, nil
}
