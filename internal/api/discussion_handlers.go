package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"watchlist-service/internal/domain"
	"watchlist-service/internal/store"
)

const commentsPageSize = 5

type DiscussionHandler struct {
	responder
	store     store.DiscussionStore
	validator *validator.Validate
	titles    TitleDirectory
}

func NewDiscussionHandler(s store.DiscussionStore, l *slog.Logger, v *validator.Validate, titles TitleDirectory) *DiscussionHandler {
	return &DiscussionHandler{
		responder: responder{logger: l},
		store:     s,
		validator: v,
		titles:    titles,
	}
}

type discussionPage struct {
	Count    int                  `json:"count"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
	Results  []*domain.Discussion `json:"results"`
}

// discussionDetail is a discussion with one page of its comments.
type discussionDetail struct {
	*domain.Discussion
	Comments domain.CommentPage `json:"comments"`
}

func (h *DiscussionHandler) ListDiscussions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, size := pageParams(r, "page_size", 10)
	titleID := r.URL.Query().Get("title_id")
	if titleID != "" {
		if _, err := uuid.Parse(titleID); err != nil {
			h.respondJSON(w, r, http.StatusOK, discussionPage{Page: page, PageSize: size, Results: []*domain.Discussion{}})
			return
		}
	}

	discussions, total, err := h.store.List(ctx, store.ListDiscussionsParams{Page: page, PageSize: size, TitleID: titleID})
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list discussions", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve discussions")
		return
	}
	h.respondJSON(w, r, http.StatusOK, discussionPage{Count: total, Page: page, PageSize: size, Results: discussions})
}

func (h *DiscussionHandler) CreateDiscussion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := UserIDFromContext(ctx)

	var req domain.CreateDiscussionRequest
	if !h.decodeValid(w, r, h.validator, &req) {
		return
	}
	if req.TitleID != nil {
		if _, err := h.titles.GetTitleInfo(ctx, *req.TitleID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				h.respondError(w, r, http.StatusNotFound, "Title not found")
				return
			}
			h.logger.ErrorContext(ctx, "Failed to look up title", slog.String("title_id", *req.TitleID), slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Could not verify title existence")
			return
		}
	}

	discussion := &domain.Discussion{
		ID:       uuid.NewString(),
		TitleID:  req.TitleID,
		UserID:   userID,
		Headline: req.Headline,
		Content:  req.Content,
	}
	if err := h.store.Create(ctx, discussion); err != nil {
		if errors.Is(err, store.ErrTitleNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Title not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to create discussion", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to create discussion")
		return
	}
	h.logger.InfoContext(ctx, "Discussion created successfully", slog.String("discussionID", discussion.ID), slog.String("userID", userID))
	h.respondJSON(w, r, http.StatusCreated, discussion)
}

func (h *DiscussionHandler) GetDiscussion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	discussionID, ok := h.pathUUID(w, r, "discussionId")
	if !ok {
		return
	}
	discussion, ok := h.loadDiscussion(w, r, discussionID)
	if !ok {
		return
	}

	page, size := pageParams(r, "page_size", commentsPageSize)
	comments, total, err := h.store.ListComments(ctx, discussionID, page, size)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list comments", slog.String("discussionID", discussionID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve comments")
		return
	}
	h.respondJSON(w, r, http.StatusOK, discussionDetail{
		Discussion: discussion,
		Comments:   domain.CommentPage{Count: total, Page: page, PageSize: size, Results: comments},
	})
}

func (h *DiscussionHandler) loadDiscussion(w http.ResponseWriter, r *http.Request, discussionID string) (*domain.Discussion, bool) {
	discussion, err := h.store.GetByID(r.Context(), discussionID)
	if err != nil {
		if errors.Is(err, store.ErrDiscussionNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "Failed to get discussion", slog.String("discussionID", discussionID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve discussion")
		return nil, false
	}
	return discussion, true
}

func (h *DiscussionHandler) ownedDiscussion(w http.ResponseWriter, r *http.Request) (*domain.Discussion, bool) {
	userID, _ := UserIDFromContext(r.Context())
	discussionID, ok := h.pathUUID(w, r, "discussionId")
	if !ok {
		return nil, false
	}
	discussion, ok := h.loadDiscussion(w, r, discussionID)
	if !ok {
		return nil, false
	}
	if discussion.UserID != userID {
		h.respondForbidden(w, r)
		return nil, false
	}
	return discussion, true
}

func (h *DiscussionHandler) UpdateDiscussion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	discussion, ok := h.ownedDiscussion(w, r)
	if !ok {
		return
	}
	var req domain.UpdateDiscussionRequest
	if !h.decodeValid(w, r, h.validator, &req) {
		return
	}
	req.Apply(discussion)

	if err := h.store.Update(ctx, discussion); err != nil {
		if errors.Is(err, store.ErrDiscussionNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to update discussion", slog.String("discussionID", discussion.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update discussion")
		return
	}
	h.respondJSON(w, r, http.StatusOK, discussion)
}

func (h *DiscussionHandler) DeleteDiscussion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	discussion, ok := h.ownedDiscussion(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx, discussion.ID, discussion.UserID); err != nil {
		if errors.Is(err, store.ErrDiscussionNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to delete discussion", slog.String("discussionID", discussion.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete discussion")
		return
	}
	h.logger.InfoContext(ctx, "Discussion deleted successfully", slog.String("discussionID", discussion.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *DiscussionHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := UserIDFromContext(ctx)

	var req domain.CreateCommentRequest
	if !h.decodeValid(w, r, h.validator, &req) {
		return
	}
	comment := &domain.Comment{
		ID:           uuid.NewString(),
		DiscussionID: req.DiscussionID,
		UserID:       userID,
		Content:      req.Content,
	}
	if err := h.store.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, store.ErrDiscussionNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Discussion not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to create comment", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to create comment")
		return
	}
	h.respondJSON(w, r, http.StatusCreated, comment)
}

func (h *DiscussionHandler) ownedComment(w http.ResponseWriter, r *http.Request) (*domain.Comment, bool) {
	ctx := r.Context()
	userID, _ := UserIDFromContext(ctx)
	commentID, ok := h.pathUUID(w, r, "commentId")
	if !ok {
		return nil, false
	}
	comment, err := h.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return nil, false
		}
		h.logger.ErrorContext(ctx, "Failed to get comment", slog.String("commentID", commentID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve comment")
		return nil, false
	}
	if comment.UserID != userID {
		h.respondForbidden(w, r)
		return nil, false
	}
	return comment, true
}

func (h *DiscussionHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	comment, ok := h.ownedComment(w, r)
	if !ok {
		return
	}
	var req domain.UpdateCommentRequest
	if !h.decodeValid(w, r, h.validator, &req) {
		return
	}
	comment.Content = req.Content

	if err := h.store.UpdateComment(ctx, comment); err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to update comment", slog.String("commentID", comment.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update comment")
		return
	}
	h.respondJSON(w, r, http.StatusOK, comment)
}

func (h *DiscussionHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	comment, ok := h.ownedComment(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteComment(ctx, comment.ID, comment.UserID); err != nil {
		if errors.Is(err, store.ErrCommentNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to delete comment", slog.String("commentID", comment.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
