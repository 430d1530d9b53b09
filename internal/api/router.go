package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(watchlists *WatchlistHandler, titles *TitleHandler, reviews *ReviewHandler, discussions *DiscussionHandler) *mux.Router {
	router := mux.NewRouter()
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		watchlists.respondError(w, r, http.StatusMethodNotAllowed, "Method \""+r.Method+"\" not allowed.")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		watchlists.respondError(w, r, http.StatusNotFound, "Not found.")
	})

	apiRouter := router.PathPrefix("/api").Subrouter()

	// Catalog-backed lookups.
	watchlistRouter := apiRouter.PathPrefix("/watchlists").Subrouter()
	watchlistRouter.HandleFunc("/search", watchlists.Search).Methods(http.MethodGet)
	watchlistRouter.HandleFunc("/get/season", watchlists.GetSeason).Methods(http.MethodGet)
	watchlistRouter.HandleFunc("/get", watchlists.GetByExternalID).Methods(http.MethodGet)
	watchlistRouter.HandleFunc("/recently_searched", watchlists.RecentlySearched).Methods(http.MethodGet)

	titlesRouter := apiRouter.PathPrefix("/titles").Subrouter()
	titlesRouter.HandleFunc("", titles.GetTitles).Methods(http.MethodGet)
	titlesRouter.HandleFunc("/{titleId}", titles.GetTitleByID).Methods(http.MethodGet)
	titlesRouter.HandleFunc("/{titleId}/rating", reviews.GetTitleAggregatedRating).Methods(http.MethodGet)

	reviewsRouter := apiRouter.PathPrefix("/reviews").Subrouter()
	reviewsRouter.Handle("", reviews.RequireUser(http.HandlerFunc(reviews.CreateReview))).Methods(http.MethodPost)
	reviewsRouter.HandleFunc("/title/{titleId}", reviews.GetReviewsForTitle).Methods(http.MethodGet)
	reviewsRouter.HandleFunc("/{reviewId}", reviews.GetReview).Methods(http.MethodGet)
	reviewsRouter.Handle("/{reviewId}", reviews.RequireUser(http.HandlerFunc(reviews.UpdateReview))).Methods(http.MethodPut)
	reviewsRouter.Handle("/{reviewId}", reviews.RequireUser(http.HandlerFunc(reviews.DeleteReview))).Methods(http.MethodDelete)
	reviewsRouter.Handle("/{reviewId}/like", reviews.RequireUser(http.HandlerFunc(reviews.VoteReview))).Methods(http.MethodPost)
	reviewsRouter.Handle("/{reviewId}/like", reviews.RequireUser(http.HandlerFunc(reviews.RemoveReviewVote))).Methods(http.MethodDelete)

	discussionsRouter := apiRouter.PathPrefix("/discussions").Subrouter()
	discussionsRouter.HandleFunc("", discussions.ListDiscussions).Methods(http.MethodGet)
	discussionsRouter.Handle("", discussions.RequireUser(http.HandlerFunc(discussions.CreateDiscussion))).Methods(http.MethodPost)
	discussionsRouter.HandleFunc("/{discussionId}", discussions.GetDiscussion).Methods(http.MethodGet)
	discussionsRouter.Handle("/{discussionId}", discussions.RequireUser(http.HandlerFunc(discussions.UpdateDiscussion))).Methods(http.MethodPut)
	discussionsRouter.Handle("/{discussionId}", discussions.RequireUser(http.HandlerFunc(discussions.DeleteDiscussion))).Methods(http.MethodDelete)

	commentsRouter := apiRouter.PathPrefix("/comments").Subrouter()
	commentsRouter.Handle("", discussions.RequireUser(http.HandlerFunc(discussions.CreateComment))).Methods(http.MethodPost)
	commentsRouter.Handle("/{commentId}", discussions.RequireUser(http.HandlerFunc(discussions.UpdateComment))).Methods(http.MethodPut)
	commentsRouter.Handle("/{commentId}", discussions.RequireUser(http.HandlerFunc(discussions.DeleteComment))).Methods(http.MethodDelete)

	return router
}
