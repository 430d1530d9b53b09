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

const discussionColumns = `id, title_id, user_id, headline, content, created_at, updated_at`

const commentColumns = `id, discussion_id, user_id, content, created_at`

// PostgresDiscussionStore implements DiscussionStore on PostgreSQL.
type PostgresDiscussionStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresDiscussionStore(db *sqlx.DB, logger *slog.Logger) (*PostgresDiscussionStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresDiscussionStore")
	}
	return &PostgresDiscussionStore{db: db, logger: logger}, nil
}

func (s *PostgresDiscussionStore) Create(ctx context.Context, discussion *domain.Discussion) error {
	query := `INSERT INTO discussions (` + discussionColumns + `)
		VALUES (:id, :title_id, :user_id, :headline, :content, :created_at, :updated_at)`
	discussion.CreatedAt = time.Now().UTC()
	discussion.UpdatedAt = discussion.CreatedAt

	if _, err := s.db.NamedExecContext(ctx, query, discussion); err != nil {
		if _, ok := isForeignKeyViolation(err); ok {
			return ErrTitleNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to create discussion in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create discussion: %w", err)
	}
	s.logger.InfoContext(ctx, "Discussion created successfully in DB", slog.String("discussionID", discussion.ID))
	return nil
}

func (s *PostgresDiscussionStore) GetByID(ctx context.Context, discussionID string) (*domain.Discussion, error) {
	var discussion domain.Discussion
	err := s.db.GetContext(ctx, &discussion, `SELECT `+discussionColumns+` FROM discussions WHERE id = $1`, discussionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDiscussionNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get discussion by ID from DB", slog.String("discussionID", discussionID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get discussion by ID: %w", err)
	}
	return &discussion, nil
}

func (s *PostgresDiscussionStore) List(ctx context.Context, params ListDiscussionsParams) ([]*domain.Discussion, int, error) {
	// NULLIF turns an empty filter into "match every title".
	where := ` WHERE ($1::text = '' OR title_id = NULLIF($1::text, '')::uuid)`

	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM discussions`+where, params.TitleID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count discussions in DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to count discussions: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Discussion{}, 0, nil
	}

	page, pageSize := normalizePage(params.Page, params.PageSize)
	query := `SELECT ` + discussionColumns + ` FROM discussions` + where + ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var discussions []*domain.Discussion
	if err := s.db.SelectContext(ctx, &discussions, query, params.TitleID, pageSize, (page-1)*pageSize); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list discussions from DB", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list discussions: %w", err)
	}
	return discussions, totalCount, nil
}

func (s *PostgresDiscussionStore) Update(ctx context.Context, discussion *domain.Discussion) error {
	query := `UPDATE discussions SET headline = $1, content = $2, updated_at = $3 WHERE id = $4 AND user_id = $5`
	discussion.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, query,
		discussion.Headline, discussion.Content, discussion.UpdatedAt, discussion.ID, discussion.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update discussion in DB", slog.String("discussionID", discussion.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update discussion: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrDiscussionNotFound
	}
	return nil
}

func (s *PostgresDiscussionStore) Delete(ctx context.Context, discussionID, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM discussions WHERE id = $1 AND user_id = $2`, discussionID, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete discussion from DB", slog.String("discussionID", discussionID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete discussion: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrDiscussionNotFound
	}
	s.logger.InfoContext(ctx, "Discussion deleted successfully from DB", slog.String("discussionID", discussionID))
	return nil
}

func (s *PostgresDiscussionStore) CreateComment(ctx context.Context, comment *domain.Comment) error {
	query := `INSERT INTO comments (` + commentColumns + `) VALUES ($1, $2, $3, $4, $5)`
	comment.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		comment.ID, comment.DiscussionID, comment.UserID, comment.Content, comment.CreatedAt)
	if err != nil {
		if _, ok := isForeignKeyViolation(err); ok {
			return ErrDiscussionNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to create comment in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (s *PostgresDiscussionStore) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.GetContext(ctx, &comment, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment by ID: %w", err)
	}
	return &comment, nil
}

func (s *PostgresDiscussionStore) ListComments(ctx context.Context, discussionID string, page, pageSize int) ([]*domain.Comment, int, error) {
	var totalCount int
	if err := s.db.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM comments WHERE discussion_id = $1`, discussionID); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}
	if totalCount == 0 {
		return []*domain.Comment{}, 0, nil
	}

	page, pageSize = normalizePage(page, pageSize)
	query := `SELECT ` + commentColumns + ` FROM comments WHERE discussion_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var comments []*domain.Comment
	if err := s.db.SelectContext(ctx, &comments, query, discussionID, pageSize, (page-1)*pageSize); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list comments from DB", slog.String("discussionID", discussionID), slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, totalCount, nil
}

func (s *PostgresDiscussionStore) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	result, err := s.db.ExecContext(ctx, `UPDATE comments SET content = $1 WHERE id = $2 AND user_id = $3`,
		comment.Content, comment.ID, comment.UserID)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (s *PostgresDiscussionStore) DeleteComment(ctx context.Context, commentID, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND user_id = $2`, commentID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrCommentNotFound
	}
	return nil
}
