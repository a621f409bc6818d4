// Package api contains API contract definitions for the campaign cleaner.
// Version v1 represents the current stable API version.
package api

import (
	"campaignclean/pkg/contracts/domain"
)

// ProcessRequest asks the server to clean previously uploaded files.
type ProcessRequest struct {
	Files []string `json:"files" validate:"required,min=1,max=100,dive,required,max=255,filename"`
}

// UploadResponse lists the stored uploads and the parts that were refused.
type UploadResponse struct {
	Success  bool             `json:"success"`
	Files    []string         `json:"files"`
	Rejected []RejectedUpload `json:"rejected,omitempty"`
}

// RejectedUpload is an uploaded part that was not stored.
type RejectedUpload struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ProcessResponse is returned once every job of the batch has finished.
type ProcessResponse struct {
	Success bool                 `json:"success"`
	BatchID string               `json:"batch_id"`
	Summary *domain.BatchSummary `json:"summary"`
}
