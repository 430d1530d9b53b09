package domain

import (
	"time"
)

// Review is a user's star rating of a cataloged title. Likes and Dislikes
// are computed from the votes on it.
type Review struct {
	ID        string    `json:"id" db:"id"`
	TitleID   string    `json:"title_id" db:"title_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Headline  string    `json:"title" db:"headline"`
	Content   string    `json:"content,omitempty" db:"content"`
	Stars     int       `json:"stars" db:"stars"`
	Likes     int       `json:"likes" db:"likes"`
	Dislikes  int       `json:"dislikes" db:"dislikes"`
	CreatedAt time.Time `json:"created" db:"created_at"`
	UpdatedAt time.Time `json:"updated" db:"updated_at"`
}

// CreateReviewRequest is the body of POST /api/reviews.
type CreateReviewRequest struct {
	TitleID  string `json:"title_id" validate:"required,uuid"`
	Headline string `json:"title" validate:"required,min=1,max=150"`
	Content  string `json:"content,omitempty" validate:"max=5000"`
	Stars    int    `json:"stars" validate:"required,gte=1,lte=5"`
}

// UpdateReviewRequest is the body of PUT /api/reviews/{reviewId}. Absent
// fields keep their value; the reviewed title never changes.
type UpdateReviewRequest struct {
	Headline *string `json:"title,omitempty" validate:"omitempty,min=1,max=150"`
	Content  *string `json:"content,omitempty" validate:"omitempty,max=5000"`
	Stars    *int    `json:"stars,omitempty" validate:"omitempty,gte=1,lte=5"`
}

// Apply copies the present fields onto r.
func (req UpdateReviewRequest) Apply(r *Review) {
	if req.Headline != nil {
		r.Headline = *req.Headline
	}
	if req.Content != nil {
		r.Content = *req.Content
	}
	if req.Stars != nil {
		r.Stars = *req.Stars
	}
}

// ReviewVote is one user's like or dislike of a review. A user holds at
// most one vote per review.
type ReviewVote struct {
	ReviewID  string    `json:"review_id" db:"review_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Like      bool      `json:"like" db:"liked"`
	CreatedAt time.Time `json:"created" db:"created_at"`
}

// ReviewVoteRequest is the body of POST /api/reviews/{reviewId}/like.
type ReviewVoteRequest struct {
	Like *bool `json:"like" validate:"required"`
}

// AggregatedRating summarises the reviews of one title.
type AggregatedRating struct {
	TitleID      string  `json:"title_id" db:"title_id"`
	AverageStars float64 `json:"average_stars" db:"average_stars"`
	ReviewCount  int64   `json:"review_count" db:"review_count"`
}

// ReviewPage is one page of reviews embedded in title payloads.
type ReviewPage struct {
	Count    int       `json:"count"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Results  []*Review `json:"results"`
}
