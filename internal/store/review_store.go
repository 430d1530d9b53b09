package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"watchlist-service/internal/domain"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("user has already reviewed this title")
	ErrVoteNotFound    = errors.New("vote not found")
)

type ListReviewsParams struct {
	Page     int
	PageSize int
	SortBy   string // created_at_desc, stars_desc, stars_asc
}

type ReviewStore interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, reviewID string) (*domain.Review, error)
	ListByTitleID(ctx context.Context, titleID string, params ListReviewsParams) ([]*domain.Review, int, error)
	AggregatedRating(ctx context.Context, titleID string) (*domain.AggregatedRating, error)
	// Update and Delete match on both the review ID and its author; a
	// review owned by someone else reads as ErrReviewNotFound.
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, reviewID, userID string) error
	SetVote(ctx context.Context, vote *domain.ReviewVote) error
	RemoveVote(ctx context.Context, reviewID, userID string) error
}

type reviewKey struct {
	titleID string
	userID  string
}

// MemoryReviewStore keeps reviews in process memory.
type MemoryReviewStore struct {
	mu      sync.RWMutex
	reviews map[string]*domain.Review
	byTitle map[string][]*domain.Review
	byUser  map[reviewKey]string
	votes   map[string]map[string]bool
	logger  *slog.Logger
}

func NewMemoryReviewStore(logger *slog.Logger) *MemoryReviewStore {
	return &MemoryReviewStore{
		reviews: make(map[string]*domain.Review),
		byTitle: make(map[string][]*domain.Review),
		byUser:  make(map[reviewKey]string),
		votes:   make(map[string]map[string]bool),
		logger:  logger,
	}
}

func (m *MemoryReviewStore) Create(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := reviewKey{review.TitleID, review.UserID}
	if _, exists := m.byUser[key]; exists {
		m.logger.WarnContext(ctx, "User has already reviewed this title",
			slog.String("titleID", review.TitleID), slog.String("userID", review.UserID))
		return ErrDuplicateReview
	}
	if _, exists := m.reviews[review.ID]; exists {
		return errors.New("review with this ID already exists")
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	review.UpdatedAt = review.CreatedAt
	review.Likes, review.Dislikes = 0, 0

	reviewCopy := *review
	m.reviews[review.ID] = &reviewCopy
	m.byTitle[review.TitleID] = append(m.byTitle[review.TitleID], &reviewCopy)
	m.byUser[key] = review.ID
	return nil
}

func (m *MemoryReviewStore) GetByID(ctx context.Context, reviewID string) (*domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	review, ok := m.reviews[reviewID]
	if !ok {
		return nil, ErrReviewNotFound
	}
	return m.withVotes(review), nil
}

// withVotes returns a copy of r carrying its current vote counts.
// Callers hold at least the read lock.
func (m *MemoryReviewStore) withVotes(r *domain.Review) *domain.Review {
	reviewCopy := *r
	for _, like := range m.votes[r.ID] {
		if like {
			reviewCopy.Likes++
		} else {
			reviewCopy.Dislikes++
		}
	}
	return &reviewCopy
}

func (m *MemoryReviewStore) ListByTitleID(ctx context.Context, titleID string, params ListReviewsParams) ([]*domain.Review, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	titleReviews := m.byTitle[titleID]
	reviews := make([]*domain.Review, len(titleReviews))
	for i, r := range titleReviews {
		reviews[i] = m.withVotes(r)
	}

	sort.SliceStable(reviews, func(i, j int) bool {
		a, b := reviews[i], reviews[j]
		switch params.SortBy {
		case "stars_desc":
			if a.Stars != b.Stars {
				return a.Stars > b.Stars
			}
		case "stars_asc":
			if a.Stars != b.Stars {
				return a.Stars < b.Stars
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	totalCount := len(reviews)
	page, pageSize := normalizePage(params.Page, params.PageSize)
	start := (page - 1) * pageSize
	if start >= totalCount {
		return []*domain.Review{}, totalCount, nil
	}
	end := min(start+pageSize, totalCount)
	return reviews[start:end], totalCount, nil
}

func (m *MemoryReviewStore) AggregatedRating(ctx context.Context, titleID string) (*domain.AggregatedRating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg := &domain.AggregatedRating{TitleID: titleID}
	var sum int
	for _, r := range m.byTitle[titleID] {
		sum += r.Stars
		agg.ReviewCount++
	}
	if agg.ReviewCount > 0 {
		agg.AverageStars = float64(sum) / float64(agg.ReviewCount)
	}
	return agg, nil
}

func (m *MemoryReviewStore) Update(ctx context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.reviews[review.ID]
	if !ok || stored.UserID != review.UserID {
		return ErrReviewNotFound
	}
	stored.Headline = review.Headline
	stored.Content = review.Content
	stored.Stars = review.Stars
	stored.UpdatedAt = time.Now().UTC()
	review.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryReviewStore) Delete(ctx context.Context, reviewID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.reviews[reviewID]
	if !ok || stored.UserID != userID {
		return ErrReviewNotFound
	}
	titleReviews := m.byTitle[stored.TitleID]
	for i, r := range titleReviews {
		if r.ID == reviewID {
			m.byTitle[stored.TitleID] = append(titleReviews[:i], titleReviews[i+1:]...)
			break
		}
	}
	delete(m.byUser, reviewKey{stored.TitleID, stored.UserID})
	delete(m.votes, reviewID)
	delete(m.reviews, reviewID)
	m.logger.InfoContext(ctx, "Review deleted", slog.String("reviewID", reviewID))
	return nil
}

func (m *MemoryReviewStore) SetVote(ctx context.Context, vote *domain.ReviewVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reviews[vote.ReviewID]; !ok {
		return ErrReviewNotFound
	}
	if m.votes[vote.ReviewID] == nil {
		m.votes[vote.ReviewID] = make(map[string]bool)
	}
	m.votes[vote.ReviewID][vote.UserID] = vote.Like
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MemoryReviewStore) RemoveVote(ctx context.Context, reviewID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.votes[reviewID][userID]; !ok {
		return ErrVoteNotFound
	}
	delete(m.votes[reviewID], userID)
	return nil
}
