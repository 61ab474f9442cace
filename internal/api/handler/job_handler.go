package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradeengage/jobrouting/internal/api/dto"
	"github.com/tradeengage/jobrouting/internal/domain"
	"github.com/tradeengage/jobrouting/internal/matching"
	"github.com/tradeengage/jobrouting/internal/metrics"
	"github.com/tradeengage/jobrouting/internal/storage"
)

// CreateJob handles POST /api/v1/jobs.
// Matches the job against active companies, then writes the job, its routings
// and their outbox events in one transaction.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	requestingCompany, _ := uuid.Parse(req.CreatedByCompanyID)
	technicianID, _ := uuid.Parse(req.CreatedByTechnicianID)

	skillLevels := make(domain.SkillLevels, len(req.SkillLevels))
	for skill, level := range req.SkillLevels {
		skillLevels[skill] = domain.SkillLevel(level)
	}

	companies, err := h.store.ListActiveCompanies(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load candidate companies", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	ranked := h.matcher.Rank(matching.Requirements{
		RequiredSkills:    req.RequiredSkills,
		SkillLevels:       skillLevels,
		Category:          req.Category,
		RequestingCompany: requestingCompany,
	}, companies)

	if len(ranked) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "No companies match the required skills",
		})
		return
	}
	if len(ranked) > h.maxRoutings {
		ranked = ranked[:h.maxRoutings]
	}

	selected := make([]storage.RoutingInput, len(ranked))
	for i, match := range ranked {
		selected[i] = storage.RoutingInput{
			CompanyID:     match.CompanyID,
			Score:         match.Score,
			MatchedSkills: match.MatchedSkills,
			ProviderType:  match.ProviderType,
		}
	}

	job := &domain.Job{
		ID:                    uuid.New(),
		Summary:               req.Summary,
		Street:                req.Address.Street,
		City:                  req.Address.City,
		State:                 req.Address.State,
		ZipCode:               req.Address.ZipCode,
		HomeownerName:         req.Homeowner.Name,
		HomeownerPhone:        req.Homeowner.Phone,
		HomeownerEmail:        req.Homeowner.Email,
		CreatedByCompanyID:    requestingCompany,
		CreatedByTechnicianID: technicianID,
		RequiredSkills:        req.RequiredSkills,
		SkillLevels:           skillLevels,
		Category:              req.Category,
	}

	routings, _, err := h.store.CreateJobWithRoutings(c.Request.Context(), job, selected)
	if err != nil {
		h.logger.Error("Failed to create job",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	metrics.JobsCreated.Inc()
	metrics.RoutingsCreated.Add(float64(len(routings)))

	h.nudgeWorker(c.Request.Context())

	resp := dto.CreateJobResponse{
		JobID:  job.ID.String(),
		Status: job.Status,
	}
	for _, routing := range routings {
		resp.Routings = append(resp.Routings, dto.NewRoutingDTO(routing))
	}
	c.JSON(http.StatusCreated, resp)
}

// GetJob handles GET /api/v1/jobs/:job_id and returns the job with its
// routings and their sync state.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	routings, err := h.store.GetRoutingsByJobID(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to load job routings",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(*job, routings))
}

// ListJobs handles GET /api/v1/jobs with filtering and keyset pagination.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		Status:   req.Status,
		Category: req.Category,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}
	if req.CompanyID != "" {
		filter.CompanyID, _ = uuid.Parse(req.CompanyID)
	}

	jobs, err := h.store.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, len(jobs))}
	for i, job := range jobs {
		resp.Jobs[i] = dto.NewJobDTO(job, nil)
	}

	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// ResyncRouting handles POST /api/v1/routings/:routing_id/resync.
// Resets a failed routing to pending with a fresh retry budget, then runs the
// claim-and-sync pass inline and returns the resulting routing state.
func (h *JobHandler) ResyncRouting(c *gin.Context) {
	routingID, err := uuid.Parse(c.Param("routing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "routing_id must be a valid UUID",
		})
		return
	}

	routing, err := h.store.GetRoutingByID(c.Request.Context(), routingID)
	if err != nil {
		if errors.Is(err, domain.ErrRoutingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Routing not found",
			})
			return
		}
		h.logger.Error("Failed to get routing",
			slog.String("routing_id", routingID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to resync routing",
		})
		return
	}

	if err := h.store.ResetForResync(c.Request.Context(), routingID); err != nil {
		if errors.Is(err, domain.ErrRoutingNotSyncable) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Routing is not in a failed state",
				"state": string(routing.SyncStatus),
			})
			return
		}
		h.logger.Error("Failed to reset routing",
			slog.String("routing_id", routingID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to resync routing",
		})
		return
	}

	payload, err := h.resyncPayload(c.Request.Context(), routing)
	if err != nil {
		h.logger.Error("Failed to build resync payload",
			slog.String("routing_id", routingID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to resync routing",
		})
		return
	}

	// Sync returns an error only when a decided outcome could not be
	// recorded; provider failures land on the routing row.
	if err := h.syncer.Sync(c.Request.Context(), payload); err != nil {
		h.logger.Error("Resync execution failed",
			slog.String("routing_id", routingID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to resync routing",
		})
		return
	}

	refreshed, err := h.store.GetRoutingByID(c.Request.Context(), routingID)
	if err != nil {
		h.logger.Error("Failed to reload routing after resync",
			slog.String("routing_id", routingID.String()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to resync routing",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewRoutingDTO(*refreshed))
}
