package domain

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Address is the service address of a job.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// Homeowner is the customer contact attached to a job.
type Homeowner struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// SkillLevels maps skill name to the minimum required level. Stored as JSONB.
type SkillLevels map[string]SkillLevel

// Value implements driver.Valuer for JSONB storage.
func (s SkillLevels) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *SkillLevels) Scan(src interface{}) error {
	if src == nil {
		*s = SkillLevels{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into SkillLevels", src)
	}
	return json.Unmarshal(b, s)
}

// Job represents a service job created by a requesting company's technician
// and routed to candidate provider companies.
type Job struct {
	ID                    uuid.UUID       `db:"id" json:"id"`
	Summary               string          `db:"summary" json:"summary"`
	Street                string          `db:"street" json:"street"`
	City                  string          `db:"city" json:"city"`
	State                 string          `db:"state" json:"state"`
	ZipCode               string          `db:"zip_code" json:"zip_code"`
	HomeownerName         string          `db:"homeowner_name" json:"homeowner_name"`
	HomeownerPhone        string          `db:"homeowner_phone" json:"homeowner_phone"`
	HomeownerEmail        string          `db:"homeowner_email" json:"homeowner_email"`
	CreatedByCompanyID    uuid.UUID       `db:"created_by_company_id" json:"created_by_company_id"`
	CreatedByTechnicianID uuid.UUID       `db:"created_by_technician_id" json:"created_by_technician_id"`
	RequiredSkills        pq.StringArray  `db:"required_skills" json:"required_skills"`
	SkillLevels           SkillLevels     `db:"skill_levels" json:"skill_levels"`
	Category              string          `db:"category" json:"category"`
	Status                string          `db:"status" json:"status"`
	Revenue               sql.NullFloat64 `db:"revenue" json:"-"`
	CompletedAt           sql.NullTime    `db:"completed_at" json:"-"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// Address assembles the job's service address value object.
func (j *Job) Address() Address {
	return Address{Street: j.Street, City: j.City, State: j.State, ZipCode: j.ZipCode}
}

// Lead is the provider-facing snapshot of a job, built once at dispatch time
// so provider clients never touch storage.
type Lead struct {
	JobID          uuid.UUID      `json:"job_id"`
	RoutingID      uuid.UUID      `json:"routing_id"`
	Summary        string         `json:"summary"`
	Category       string         `json:"category"`
	CustomerName   string         `json:"customer_name"`
	CustomerPhone  string         `json:"customer_phone"`
	CustomerEmail  string         `json:"customer_email"`
	ServiceAddress Address        `json:"service_address"`
	RequiredSkills []string       `json:"required_skills"`
	ProviderConfig ProviderConfig `json:"-"`
	IdempotencyKey string         `json:"idempotency_key"`
}

// NewLead builds the provider snapshot for one routing. The routing ID doubles
// as the idempotency key so a replayed dispatch cannot create a second lead.
func NewLead(job *Job, routing *JobRouting, company *Company) Lead {
	return Lead{
		JobID:          job.ID,
		RoutingID:      routing.ID,
		Summary:        job.Summary,
		Category:       job.Category,
		CustomerName:   job.HomeownerName,
		CustomerPhone:  job.HomeownerPhone,
		CustomerEmail:  job.HomeownerEmail,
		ServiceAddress: job.Address(),
		RequiredSkills: job.RequiredSkills,
		ProviderConfig: company.ProviderConfig,
		IdempotencyKey: routing.ID.String(),
	}
}
