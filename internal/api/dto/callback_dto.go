package dto

// RunnerCallbackRequest is the payload the compute provider POSTs when a
// job finishes. Status is terminal only: completed or failed.
type RunnerCallbackRequest struct {
	JobID        string        `json:"job_id" binding:"required"`
	Status       string        `json:"status" binding:"required"`
	OutputURL    string        `json:"output_url"`
	ThumbnailURL string        `json:"thumbnail_url"`
	ErrorMessage string        `json:"error_message"`
	Assets       []RunnerAsset `json:"assets,omitempty"`
}

// RunnerAsset describes one artifact attached to a completion callback
type RunnerAsset struct {
	Type     string            `json:"type"`
	URL      string            `json:"url"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type RunnerCallbackResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}
