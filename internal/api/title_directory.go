package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"watchlist-service/internal/domain"
	"watchlist-service/internal/store"
)

// TitleDirectory resolves title ids for reviews and discussions. The
// peer gRPC client and StoreTitleDirectory both satisfy it. GetTitleInfo
// reports an unknown title as domain.ErrNotFound.
type TitleDirectory interface {
	CheckTitleExists(ctx context.Context, titleID string) (bool, error)
	GetTitleInfo(ctx context.Context, titleID string) (*domain.TitleSummary, error)
}

// StoreTitleDirectory answers from the local title store.
type StoreTitleDirectory struct {
	Titles store.TitleStore
}

func (d StoreTitleDirectory) CheckTitleExists(ctx context.Context, titleID string) (bool, error) {
	_, err := d.GetTitleInfo(ctx, titleID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (d StoreTitleDirectory) GetTitleInfo(ctx context.Context, titleID string) (*domain.TitleSummary, error) {
	if _, err := uuid.Parse(titleID); err != nil {
		return nil, fmt.Errorf("%w: title id %q is not a UUID", domain.ErrNotFound, titleID)
	}
	title, err := d.Titles.GetByID(ctx, titleID)
	if err != nil {
		if errors.Is(err, store.ErrTitleNotFound) {
			return nil, fmt.Errorf("%w: title %s", domain.ErrNotFound, titleID)
		}
		return nil, err
	}
	return title.Summary(), nil
}
