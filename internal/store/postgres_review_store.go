package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"watchlist-service/internal/domain"
)

const reviewColumns = `id, title_id, user_id, headline, content, stars, created_at, updated_at`

// reviewSelect reads reviews together with their vote counts; callers
// append a WHERE clause and GROUP BY r.id.
const reviewSelect = `SELECT r.id, r.title_id, r.user_id, r.headline, r.content, r.stars, r.created_at, r.updated_at,
		COUNT(l.user_id) FILTER (WHERE l.liked) AS likes,
		COUNT(l.user_id) FILTER (WHERE NOT l.liked) AS dislikes
	FROM reviews r LEFT JOIN review_likes l ON l.review_id = r.id`

// PostgresReviewStore implements ReviewStore on PostgreSQL.
type PostgresReviewStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresReviewStore(db *sqlx.DB, logger *slog.Logger) (*PostgresReviewStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresReviewStore")
	}
	return &PostgresReviewStore{db: db, logger: logger}, nil
}

func (s *PostgresReviewStore) Create(ctx context.Context, review *domain.Review) error {
	query := `INSERT INTO reviews (` + reviewColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	review.CreatedAt = time.Now().UTC()
	review.UpdatedAt = review.CreatedAt

	s.logger.DebugContext(ctx, "Executing Create review query",
		slog.String("reviewID", review.ID),
		slog.String("titleID", review.TitleID),
		slog.String("userID", review.UserID))

	_, err := s.db.ExecContext(ctx, query,
		review.ID, review.TitleID, review.UserID, review.Headline, review.Content, review.Stars, review.CreatedAt, review.UpdatedAt)
	if err != nil {
		if pqErr, ok := isUniqueViolation(err); ok {
			if pqErr.Constraint == "uq_user_title_review" {
				s.logger.WarnContext(ctx, "User has already reviewed this title (DB constraint)",
					slog.String("titleID", review.TitleID), slog.String("userID", review.UserID))
				return ErrDuplicateReview
			}
			return fmt.Errorf("failed to create review due to unique constraint %s: %w", pqErr.Constraint, err)
		}
		s.logger.ErrorContext(ctx, "Failed to create review in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create review: %w", err)
	}
	s.logger.InfoContext(ctx, "Review created successfully in DB", slog.String("reviewID", review.ID))
	return nil
}

func (s *PostgresReviewStore) GetByID(ctx context.Context, reviewID string) (*domain.Review, error) {
	query := reviewSelect + ` WHERE r.id = $1 GROUP BY r.id`
	var review domain.Review

	if err := s.db.GetContext(ctx, &review, query, reviewID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get review by ID from DB", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get review by ID: %w", err)
	}
	return &review, nil
}

func (s *PostgresReviewStore) ListByTitleID(ctx context.Context, titleID string, params ListReviewsParams) ([]*domain.Review, int, error) {
	var reviews []*domain.Review
	var totalCount int

	if err := s.db.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM reviews WHERE title_id = $1`, titleID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count reviews by titleID in DB", slog.String("titleID", titleID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count reviews by titleID: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Review{}, 0, nil
	}

	orderBy := "r.created_at DESC"
	switch params.SortBy {
	case "stars_desc":
		orderBy = "r.stars DESC, r.created_at DESC"
	case "stars_asc":
		orderBy = "r.stars ASC, r.created_at DESC"
	}
	page, pageSize := normalizePage(params.Page, params.PageSize)
	query := reviewSelect + ` WHERE r.title_id = $1 GROUP BY r.id ORDER BY ` + orderBy + ` LIMIT $2 OFFSET $3`

	if err := s.db.SelectContext(ctx, &reviews, query, titleID, pageSize, (page-1)*pageSize); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list reviews by titleID from DB", slog.String("titleID", titleID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list reviews by titleID: %w", err)
	}
	return reviews, totalCount, nil
}

func (s *PostgresReviewStore) AggregatedRating(ctx context.Context, titleID string) (*domain.AggregatedRating, error) {
	query := `SELECT COALESCE(AVG(stars), 0) AS average_stars, COUNT(stars) AS review_count
		FROM reviews WHERE title_id = $1`

	var agg domain.AggregatedRating
	agg.TitleID = titleID
	if err := s.db.GetContext(ctx, &agg, query, titleID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get aggregated rating from DB", slog.String("titleID", titleID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get aggregated rating for titleID %s: %w", titleID, err)
	}
	return &agg, nil
}

func (s *PostgresReviewStore) Update(ctx context.Context, review *domain.Review) error {
	query := `UPDATE reviews SET headline = $1, content = $2, stars = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6`
	review.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, query,
		review.Headline, review.Content, review.Stars, review.UpdatedAt, review.ID, review.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update review in DB", slog.String("reviewID", review.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update review: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrReviewNotFound
	}
	s.logger.InfoContext(ctx, "Review updated successfully in DB", slog.String("reviewID", review.ID))
	return nil
}

func (s *PostgresReviewStore) Delete(ctx context.Context, reviewID, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete review from DB", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrReviewNotFound
	}
	s.logger.InfoContext(ctx, "Review deleted successfully from DB", slog.String("reviewID", reviewID))
	return nil
}

func (s *PostgresReviewStore) SetVote(ctx context.Context, vote *domain.ReviewVote) error {
	query := `INSERT INTO review_likes (review_id, user_id, liked, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (review_id, user_id) DO UPDATE SET liked = EXCLUDED.liked`
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx, query, vote.ReviewID, vote.UserID, vote.Like, vote.CreatedAt); err != nil {
		if _, ok := isForeignKeyViolation(err); ok {
			return ErrReviewNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to store review vote", slog.String("reviewID", vote.ReviewID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to store review vote: %w", err)
	}
	return nil
}

func (s *PostgresReviewStore) RemoveVote(ctx context.Context, reviewID, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM review_likes WHERE review_id = $1 AND user_id = $2`, reviewID, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to remove review vote", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to remove review vote: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrVoteNotFound
	}
	return nil
}
