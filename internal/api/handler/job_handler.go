package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lancerhub/marketplace-be/internal/api/domain"
	"github.com/lancerhub/marketplace-be/internal/api/dto"
	"github.com/lancerhub/marketplace-be/internal/api/model"
	"github.com/lancerhub/marketplace-be/internal/api/storage"
	workerdomain "github.com/lancerhub/marketplace-be/internal/worker/domain"
)

// CreateJob handles POST /api/v1/jobs
// Creates a new job posting with a fixed number of proposal slots
func (h *JobHandler) CreateJob(c *gin.Context) {
	h.logger.Info("CreateJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if _, err := uuid.Parse(req.ClientID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "client_id must be a valid UUID",
		})
		return
	}

	if req.Budget <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "budget must be positive",
		})
		return
	}

	if req.NumberOfSlots <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "number_of_slots must be positive",
		})
		return
	}

	job := model.Job{
		JobID:         uuid.New().String(),
		ClientID:      req.ClientID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Budget:        req.Budget,
		NumberOfSlots: req.NumberOfSlots,
		AcceptedSlots: 0,
		Status:        domain.JobStatusOpen,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := h.jobs.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toJobDTO(&job))
}

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves detailed information about a specific job posting
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	h.logger.Info("GetJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.jobs.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs
// Lists job postings with optional filtering and keyset pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	h.logger.Info("ListJobs called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !domain.JobStatus(req.Status).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be one of open, in_progress, completed",
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
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		ClientID: req.ClientID,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = toJobDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		cursorObj := storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		}
		nextCursor, err = EncodeJobCursor(&cursorObj)
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// UpdateJobStatus handles PATCH /api/v1/jobs/:job_id/status
// Moves a job between open, in_progress, and completed
func (h *JobHandler) UpdateJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	h.logger.Info("UpdateJobStatus called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	var req dto.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	status := domain.JobStatus(req.Status)
	if !status.Valid() {
		respondError(c, &domain.InvalidStatusError{Entity: "job", Value: req.Status})
		return
	}

	if err := h.jobs.UpdateJobStatus(c.Request.Context(), jobID, status); err != nil {
		h.logger.Error("Failed to update job status", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	job, err := h.jobs.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to reload job", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ClaimSlot handles POST /api/v1/jobs/:job_id/slots
// Claims one open slot synchronously and returns the updated job snapshot
func (h *JobHandler) ClaimSlot(c *gin.Context) {
	jobID := c.Param("job_id")

	h.logger.Info("ClaimSlot called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.jobs.AcceptSlot(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to claim slot", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// AcceptProposal handles POST /api/v1/jobs/:job_id/proposals/accept
// Publishes a proposal.accepted event; the worker claims the slot and opens
// the escrow contract asynchronously.
func (h *JobHandler) AcceptProposal(c *gin.Context) {
	jobID := c.Param("job_id")

	h.logger.Info("AcceptProposal called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	var req dto.AcceptProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if _, err := uuid.Parse(req.ProposalID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "proposal_id must be a valid UUID",
		})
		return
	}

	if _, err := uuid.Parse(req.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id must be a valid UUID",
		})
		return
	}

	if req.EscrowAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "escrow_amount must be positive",
		})
		return
	}

	// Reject before publishing when the job is already full; the worker still
	// enforces the ceiling atomically, this just gives callers a fast answer.
	job, err := h.jobs.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	if job.AcceptedSlots >= job.NumberOfSlots {
		respondError(c, domain.ErrSlotsExhausted)
		return
	}

	event := workerdomain.ProposalAcceptedEvent{
		EventType:    workerdomain.EventProposalAccepted,
		ProposalID:   req.ProposalID,
		JobID:        jobID,
		UserID:       req.UserID,
		EscrowAmount: req.EscrowAmount,
	}

	body, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	if err := h.publisher.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish proposal.accepted event", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to queue proposal acceptance",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":      jobID,
		"proposal_id": req.ProposalID,
		"status":      "queued",
	})
}

// DeleteJob handles DELETE /api/v1/jobs/:job_id
// Permanently deletes a job posting
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("job_id")

	h.logger.Info("DeleteJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	if err := h.jobs.DeleteJob(c.Request.Context(), jobID); err != nil {
		h.logger.Error("Failed to delete job", slog.String("error", err.Error()))
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toJobDTO(job *model.Job) dto.JobDTO {
	return dto.JobDTO{
		JobID:         job.JobID,
		ClientID:      job.ClientID,
		Title:         job.Title,
		Description:   job.Description,
		Category:      job.Category,
		Budget:        job.Budget,
		NumberOfSlots: job.NumberOfSlots,
		AcceptedSlots: job.AcceptedSlots,
		Status:        string(job.Status),
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.Format(time.RFC3339),
	}
}
