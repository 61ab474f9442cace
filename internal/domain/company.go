package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProviderConfig holds provider credentials/settings as opaque JSON. The core
// never interprets it; provider clients do.
type ProviderConfig map[string]string

// Value implements driver.Valuer for JSONB storage.
func (c ProviderConfig) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *ProviderConfig) Scan(src interface{}) error {
	if src == nil {
		*c = ProviderConfig{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ProviderConfig", src)
	}
	return json.Unmarshal(b, c)
}

// CompanySkill is one declared skill of a company.
type CompanySkill struct {
	Name      string     `db:"skill_name" json:"name"`
	Level     SkillLevel `db:"skill_level" json:"level"`
	IsPrimary bool       `db:"is_primary" json:"is_primary"`
}

// Company is a candidate provider company. Read-only input to matching; owned
// by the company administration collaborator, never mutated by the core.
type Company struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	ProviderType   ProviderType   `db:"provider_type" json:"provider_type"`
	ProviderConfig ProviderConfig `db:"provider_config" json:"-"`
	Skills         []CompanySkill `db:"-" json:"skills"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Skill returns the declared skill with the given name, if any.
func (c *Company) Skill(name string) (CompanySkill, bool) {
	for _, s := range c.Skills {
		if s.Name == name {
			return s, true
		}
	}
	return CompanySkill{}, false
}
