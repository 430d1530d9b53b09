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
	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrCommentNotFound    = errors.New("comment not found")
)

type ListDiscussionsParams struct {
	Page     int
	PageSize int
	TitleID  string // empty lists every discussion
}

// DiscussionStore persists discussions and their comments. Update and
// Delete calls match on the author as well as the ID.
type DiscussionStore interface {
	Create(ctx context.Context, discussion *domain.Discussion) error
	GetByID(ctx context.Context, discussionID string) (*domain.Discussion, error)
	List(ctx context.Context, params ListDiscussionsParams) ([]*domain.Discussion, int, error)
	Update(ctx context.Context, discussion *domain.Discussion) error
	Delete(ctx context.Context, discussionID, userID string) error

	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, commentID string) (*domain.Comment, error)
	ListComments(ctx context.Context, discussionID string, page, pageSize int) ([]*domain.Comment, int, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, commentID, userID string) error
}

// MemoryDiscussionStore keeps discussions in process memory.
type MemoryDiscussionStore struct {
	mu          sync.RWMutex
	discussions map[string]*domain.Discussion
	comments    map[string]*domain.Comment
	logger      *slog.Logger
}

func NewMemoryDiscussionStore(logger *slog.Logger) *MemoryDiscussionStore {
	return &MemoryDiscussionStore{
		discussions: make(map[string]*domain.Discussion),
		comments:    make(map[string]*domain.Comment),
		logger:      logger,
	}
}

func (m *MemoryDiscussionStore) Create(ctx context.Context, discussion *domain.Discussion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.discussions[discussion.ID]; exists {
		return errors.New("discussion with this ID already exists")
	}
	if discussion.CreatedAt.IsZero() {
		discussion.CreatedAt = time.Now().UTC()
	}
	discussion.UpdatedAt = discussion.CreatedAt

	discussionCopy := *discussion
	m.discussions[discussion.ID] = &discussionCopy
	m.logger.InfoContext(ctx, "Discussion created", slog.String("discussionID", discussion.ID))
	return nil
}

func (m *MemoryDiscussionStore) GetByID(ctx context.Context, discussionID string) (*domain.Discussion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	discussion, ok := m.discussions[discussionID]
	if !ok {
		return nil, ErrDiscussionNotFound
	}
	discussionCopy := *discussion
	return &discussionCopy, nil
}

func (m *MemoryDiscussionStore) List(ctx context.Context, params ListDiscussionsParams) ([]*domain.Discussion, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var discussions []*domain.Discussion
	for _, d := range m.discussions {
		if params.TitleID != "" && (d.TitleID == nil || *d.TitleID != params.TitleID) {
			continue
		}
		discussionCopy := *d
		discussions = append(discussions, &discussionCopy)
	}
	sort.Slice(discussions, func(i, j int) bool {
		return discussions[i].CreatedAt.After(discussions[j].CreatedAt)
	})
	return paginate(discussions, params.Page, params.PageSize)
}

func (m *MemoryDiscussionStore) Update(ctx context.Context, discussion *domain.Discussion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.discussions[discussion.ID]
	if !ok || stored.UserID != discussion.UserID {
		return ErrDiscussionNotFound
	}
	stored.Headline = discussion.Headline
	stored.Content = discussion.Content
	stored.UpdatedAt = time.Now().UTC()
	discussion.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryDiscussionStore) Delete(ctx context.Context, discussionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.discussions[discussionID]
	if !ok || stored.UserID != userID {
		return ErrDiscussionNotFound
	}
	for id, c := range m.comments {
		if c.DiscussionID == discussionID {
			delete(m.comments, id)
		}
	}
	delete(m.discussions, discussionID)
	m.logger.InfoContext(ctx, "Discussion deleted", slog.String("discussionID", discussionID))
	return nil
}

func (m *MemoryDiscussionStore) CreateComment(ctx context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.discussions[comment.DiscussionID]; !ok {
		return ErrDiscussionNotFound
	}
	if _, exists := m.comments[comment.ID]; exists {
		return errors.New("comment with this ID already exists")
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	commentCopy := *comment
	m.comments[comment.ID] = &commentCopy
	return nil
}

func (m *MemoryDiscussionStore) GetComment(ctx context.Context, commentID string) (*domain.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	comment, ok := m.comments[commentID]
	if !ok {
		return nil, ErrCommentNotFound
	}
	commentCopy := *comment
	return &commentCopy, nil
}

func (m *MemoryDiscussionStore) ListComments(ctx context.Context, discussionID string, page, pageSize int) ([]*domain.Comment, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var comments []*domain.Comment
	for _, c := range m.comments {
		if c.DiscussionID == discussionID {
			commentCopy := *c
			comments = append(comments, &commentCopy)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return paginate(comments, page, pageSize)
}

func (m *MemoryDiscussionStore) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.comments[comment.ID]
	if !ok || stored.UserID != comment.UserID {
		return ErrCommentNotFound
	}
	stored.Content = comment.Content
	return nil
}

func (m *MemoryDiscussionStore) DeleteComment(ctx context.Context, commentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.comments[commentID]
	if !ok || stored.UserID != userID {
		return ErrCommentNotFound
	}
	delete(m.comments, commentID)
	return nil
}

// paginate slices an already ordered result set.
func paginate[T any](items []T, page, pageSize int) ([]T, int, error) {
	total := len(items)
	page, pageSize = normalizePage(page, pageSize)
	start := (page - 1) * pageSize
	if start >= total {
		return []T{}, total, nil
	}
	return items[start:min(start+pageSize, total)], total, nil
}
