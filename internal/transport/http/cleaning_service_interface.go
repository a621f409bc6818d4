package http

import (
	"context"

	"campaignclean/internal/services"
	"campaignclean/pkg/contracts/domain"
)

// CleaningServiceInterface defines the cleaning operations the handler needs
type CleaningServiceInterface interface {
	Upload(ctx context.Context, files []services.UploadFile) (*services.UploadResult, error)
	Process(ctx context.Context, names []string) (*domain.BatchSummary, error)
	Batch(ctx context.Context, id string) (*domain.BatchSummary, error)
	Download(ctx context.Context, name string) (*services.Artifact, error)
}
