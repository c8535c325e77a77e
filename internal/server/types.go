// Package server provides the HTTP server for the clipmerge API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// CreateMergeRequest is the HTTP request body for creating a merge job.
type CreateMergeRequest struct {
	// Clips are the base64-encoded clips in timeline order.
	Clips []string `json:"clips" validate:"required,min=1,dive,required,base64"`
	// Audio is an optional base64-encoded track that replaces the clips' audio.
	Audio string `json:"audio,omitempty" validate:"omitempty,base64"`
	// Width and Height are the render size. Zero fields use the server defaults.
	Width  int `json:"width,omitempty" validate:"omitempty,min=1,max=1920"`
	Height int `json:"height,omitempty" validate:"omitempty,min=1,max=1920"`
	// FrameValue and FrameScale give a frame duration of FrameValue/FrameScale seconds.
	FrameValue int `json:"frame_value,omitempty" validate:"omitempty,min=1"`
	FrameScale int `json:"frame_scale,omitempty" validate:"omitempty,min=1"`
	// FadeSeconds fades the replacement audio in and out.
	FadeSeconds *float64 `json:"fade_seconds,omitempty" validate:"omitempty,gte=0,lte=60"`
	// AudioOffsetSeconds is where Audio starts on the output timeline.
	AudioOffsetSeconds float64 `json:"audio_offset_seconds,omitempty" validate:"gte=0,lte=3600"`
	// PushToS3 indicates whether to upload the merged video to S3.
	PushToS3 bool `json:"push_to_s3"`
	// DryRun creates the job without starting the merge.
	DryRun bool `json:"dry_run,omitempty"`
}

// CreateMergeResponse is the HTTP response after creating a merge job.
type CreateMergeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// JobResponse is the HTTP response for a merge job.
type JobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	// Error and ErrorKind describe why the job failed.
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Clips     int    `json:"clips"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	// FrameRate is the output rate as "scale/value".
	FrameRate          string     `json:"frame_rate"`
	FadeSeconds        float64    `json:"fade_seconds"`
	AudioOffsetSeconds float64    `json:"audio_offset_seconds,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	// VideoBase64 is the base64-encoded video (completed, push_to_s3=false).
	VideoBase64 string `json:"video_base64,omitempty"`
	// VideoURL is the S3 URL of the video (completed, push_to_s3=true).
	VideoURL string `json:"video_url,omitempty"`
}

// ListJobsResponse is the HTTP response for listing merge jobs.
// Listed jobs never carry video content.
type ListJobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}
