package dto

import (
	"time"

	"github.com/tradeengage/jobrouting/internal/domain"
)

// AddressRequest is the service address of a new job.
type AddressRequest struct {
	Street  string `json:"street" binding:"required"`
	City    string `json:"city" binding:"required"`
	State   string `json:"state" binding:"required"`
	ZipCode string `json:"zip_code" binding:"required"`
}

// HomeownerRequest is the customer contact of a new job.
type HomeownerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateJobRequest is the body of POST /api/v1/jobs.
type CreateJobRequest struct {
	Summary               string            `json:"summary" binding:"required"`
	Category              string            `json:"category" binding:"required"`
	Address               AddressRequest    `json:"address" binding:"required"`
	Homeowner             HomeownerRequest  `json:"homeowner" binding:"required"`
	CreatedByCompanyID    string            `json:"created_by_company_id" binding:"required,uuid"`
	CreatedByTechnicianID string            `json:"created_by_technician_id" binding:"required,uuid"`
	RequiredSkills        []string          `json:"required_skills" binding:"required,min=1,dive,required"`
	SkillLevels           map[string]string `json:"skill_levels" binding:"omitempty,dive,skill_level"`
}

// RoutingDTO is one routing in API responses.
type RoutingDTO struct {
	RoutingID    string  `json:"routing_id"`
	CompanyID    string  `json:"company_id"`
	SyncStatus   string  `json:"sync_status"`
	RetryCount   int     `json:"retry_count"`
	MaxRetries   int     `json:"max_retries"`
	ExternalID   string  `json:"external_id,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Revenue      float64 `json:"revenue,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// JobDTO is one job in API responses.
type JobDTO struct {
	JobID          string            `json:"job_id"`
	Summary        string            `json:"summary"`
	Category       string            `json:"category"`
	Status         string            `json:"status"`
	Address        AddressRequest    `json:"address"`
	Homeowner      HomeownerRequest  `json:"homeowner"`
	RequiredSkills []string          `json:"required_skills"`
	SkillLevels    map[string]string `json:"skill_levels,omitempty"`
	Revenue        float64           `json:"revenue,omitempty"`
	Routings       []RoutingDTO      `json:"routings,omitempty"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
}

// CreateJobResponse is the body returned by POST /api/v1/jobs.
type CreateJobResponse struct {
	JobID    string       `json:"job_id"`
	Status   string       `json:"status"`
	Routings []RoutingDTO `json:"routings"`
}

// ListJobsRequest holds the query parameters of GET /api/v1/jobs.
type ListJobsRequest struct {
	CompanyID string `form:"company_id" binding:"omitempty,uuid"`
	Status    string `form:"status"`
	Category  string `form:"category"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

// ListJobsResponse is the body of GET /api/v1/jobs.
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// NewRoutingDTO maps a routing row to its API shape.
func NewRoutingDTO(r domain.JobRouting) RoutingDTO {
	dto := RoutingDTO{
		RoutingID:  r.ID.String(),
		CompanyID:  r.CompanyID.String(),
		SyncStatus: string(r.SyncStatus),
		RetryCount: r.RetryCount,
		MaxRetries: r.MaxRetries,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
	}
	if r.ExternalID.Valid {
		dto.ExternalID = r.ExternalID.String
	}
	if r.ErrorMessage.Valid {
		dto.ErrorMessage = r.ErrorMessage.String
	}
	if r.Revenue.Valid {
		dto.Revenue = r.Revenue.Float64
	}
	return dto
}

// NewJobDTO maps a job row to its API shape.
func NewJobDTO(job domain.Job, routings []domain.JobRouting) JobDTO {
	levels := make(map[string]string, len(job.SkillLevels))
	for skill, level := range job.SkillLevels {
		levels[skill] = string(level)
	}

	dto := JobDTO{
		JobID:    job.ID.String(),
		Summary:  job.Summary,
		Category: job.Category,
		Status:   job.Status,
		Address: AddressRequest{
			Street:  job.Street,
			City:    job.City,
			State:   job.State,
			ZipCode: job.ZipCode,
		},
		Homeowner: HomeownerRequest{
			Name:  job.HomeownerName,
			Phone: job.HomeownerPhone,
			Email: job.HomeownerEmail,
		},
		RequiredSkills: job.RequiredSkills,
		SkillLevels:    levels,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}
	if job.Revenue.Valid {
		dto.Revenue = job.Revenue.Float64
	}
	for _, r := range routings {
		dto.Routings = append(dto.Routings, NewRoutingDTO(r))
	}
	return dto
}
