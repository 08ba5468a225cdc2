package dto

type CreateJobRequest struct {
	ClientID      string `json:"client_id" binding:"required"`
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Budget        int64  `json:"budget" binding:"required"`
	NumberOfSlots int    `json:"number_of_slots" binding:"required"`
}

type UpdateJobStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ListJobsRequest struct {
	ClientID string `form:"client_id"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID         string `json:"job_id"`
	ClientID      string `json:"client_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Budget        int64  `json:"budget"`
	NumberOfSlots int    `json:"number_of_slots"`
	AcceptedSlots int    `json:"accepted_slots"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
