package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"watchlist-service/internal/domain"
	"watchlist-service/internal/store"
)

// UserIDHeader carries the caller identity set by the gateway.
const UserIDHeader = "X-User-ID"

type ReviewHandler struct {
	responder
	store     store.ReviewStore
	validator *validator.Validate
	titles    TitleDirectory
}

func NewReviewHandler(s store.ReviewStore, l *slog.Logger, v *validator.Validate, titles TitleDirectory) *ReviewHandler {
	return &ReviewHandler{
		responder: responder{logger: l},
		store:     s,
		validator: v,
		titles:    titles,
	}
}

// reviewWithMedia is a freshly created review plus the title it rates.
type reviewWithMedia struct {
	*domain.Review
	Media *domain.TitleSummary `json:"media"`
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		h.respondError(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	h.logger.InfoContext(ctx, "User attempting to create review", slog.String("userID", userID), slog.String("path", r.URL.Path))

	var req domain.CreateReviewRequest
	if !h.decodeValid(w, r, h.validator, &req) {
		return
	}

	media, err := h.titles.GetTitleInfo(ctx, req.TitleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(ctx, "Attempt to review non-existent title", slog.String("title_id", req.TitleID))
			h.respondError(w, r, http.StatusNotFound, "Title not found")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to look up title",
			slog.String("title_id", req.TitleID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Could not verify title existence")
		return
	}

	review := &domain.Review{
		ID:        uuid.NewString(),
		TitleID:   req.TitleID,
		UserID:    userID,
		Headline:  req.Headline,
		Content:   req.Content,
		Stars:     req.Stars,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.Create(ctx, review); err != nil {
		if errors.Is(err, store.ErrDuplicateReview) {
			h.respondError(w, r, http.StatusConflict, "You have already reviewed this title.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to create review in store", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to create review")
		return
	}
	h.logger.InfoContext(ctx, "Review created successfully", slog.String("reviewID", review.ID), slog.String("titleID", review.TitleID))
	h.respondJSON(w, r, http.StatusCreated, reviewWithMedia{Review: review, Media: media})
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := h.pathUUID(w, r, "reviewId")
	if !ok {
		return
	}
	review, ok := h.loadReview(w, r, reviewID)
	if !ok {
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

// loadReview fetches a review, answering 404 or 500 itself on failure.
func (h *ReviewHandler) loadReview(w http.ResponseWriter, r *http.Request, reviewID string) (*domain.Review, bool) {
	review, err := h.store.GetByID(r.Context(), reviewID)
	if err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "Failed to get review", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve review")
		return nil, false
	}
	return review, true
}

// ownedReview loads the routed review and checks that the caller wrote it.
func (h *ReviewHandler) ownedReview(w http.ResponseWriter, r *http.Request) (*domain.Review, bool) {
	userID, _ := UserIDFromContext(r.Context())
	reviewID, ok := h.pathUUID(w, r, "reviewId")
	if !ok {
		return nil, false
	}
	review, ok := h.loadReview(w, r, reviewID)
	if !ok {
		return nil, false
	}
	if review.UserID != userID {
		h.logger.WarnContext(r.Context(), "User attempted to modify another user's review",
			slog.String("reviewID", reviewID), slog.String("userID", userID))
		h.respondForbidden(w, r)
		return nil, false
	}
	return review, true
}

func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	review, ok := h.ownedReview(w, r)
	if !ok {
		return
	}
	var req domain.UpdateReviewRequest
	if !h.decodeValid(w, r, h.validator, &req) {
		return
	}
	req.Apply(review)

	if err := h.store.Update(ctx, review); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to update review", slog.String("reviewID", review.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to update review")
		return
	}
	h.logger.InfoContext(ctx, "Review updated successfully", slog.String("reviewID", review.ID))
	h.respondJSON(w, r, http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	review, ok := h.ownedReview(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx, review.ID, review.UserID); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to delete review", slog.String("reviewID", review.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to delete review")
		return
	}
	h.logger.InfoContext(ctx, "Review deleted successfully", slog.String("reviewID", review.ID))
	w.WriteHeader(http.StatusNoContent)
}

// VoteReview records the caller's like or dislike, replacing an earlier
// vote, and answers with the review's new counts.
func (h *ReviewHandler) VoteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := UserIDFromContext(ctx)
	reviewID, ok := h.pathUUID(w, r, "reviewId")
	if !ok {
		return
	}
	var req domain.ReviewVoteRequest
	if !h.decodeValid(w, r, h.validator, &req) {
		return
	}

	vote := &domain.ReviewVote{ReviewID: reviewID, UserID: userID, Like: *req.Like}
	if err := h.store.SetVote(ctx, vote); err != nil {
		if errors.Is(err, store.ErrReviewNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to store review vote", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to record vote")
		return
	}
	review, ok := h.loadReview(w, r, reviewID)
	if !ok {
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

func (h *ReviewHandler) RemoveReviewVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := UserIDFromContext(ctx)
	reviewID, ok := h.pathUUID(w, r, "reviewId")
	if !ok {
		return
	}
	if err := h.store.RemoveVote(ctx, reviewID, userID); err != nil {
		if errors.Is(err, store.ErrVoteNotFound) {
			h.respondError(w, r, http.StatusNotFound, "Not found.")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to remove review vote", slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to remove vote")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) GetReviewsForTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	titleID, ok := h.pathUUID(w, r, "titleId")
	if !ok {
		return
	}
	page, limit := pageParams(r, "limit", 10)

	reviews, totalCount, err := h.store.ListByTitleID(ctx, titleID, store.ListReviewsParams{
		Page:     page,
		PageSize: limit,
		SortBy:   r.URL.Query().Get("sort_by"),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list reviews", slog.String("titleID", titleID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve reviews")
		return
	}
	h.respondJSON(w, r, http.StatusOK, domain.ReviewPage{Count: totalCount, Page: page, PageSize: limit, Results: reviews})
}

func (h *ReviewHandler) GetTitleAggregatedRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	titleID := mux.Vars(r)["titleId"]

	exists, err := h.titles.CheckTitleExists(ctx, titleID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to check title existence", slog.String("title_id", titleID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Could not verify title existence")
		return
	}
	if !exists {
		h.respondError(w, r, http.StatusNotFound, "Title not found")
		return
	}

	agg, err := h.store.AggregatedRating(ctx, titleID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get aggregated rating", slog.String("titleID", titleID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Failed to get rating")
		return
	}
	h.respondJSON(w, r, http.StatusOK, agg)
}
