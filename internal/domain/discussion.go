package domain

import (
	"time"
)

// Discussion is a user-started thread, optionally about one title.
type Discussion struct {
	ID        string    `json:"id" db:"id"`
	TitleID   *string   `json:"title_id" db:"title_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Headline  string    `json:"title" db:"headline"`
	Content   string    `json:"content,omitempty" db:"content"`
	CreatedAt time.Time `json:"created" db:"created_at"`
	UpdatedAt time.Time `json:"updated" db:"updated_at"`
}

// Comment belongs to exactly one discussion.
type Comment struct {
	ID           string    `json:"id" db:"id"`
	DiscussionID string    `json:"discussion" db:"discussion_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Content      string    `json:"content" db:"content"`
	CreatedAt    time.Time `json:"created" db:"created_at"`
}

type CreateDiscussionRequest struct {
	TitleID  *string `json:"title_id,omitempty" validate:"omitempty,uuid"`
	Headline string  `json:"title" validate:"required,min=1,max=400"`
	Content  string  `json:"content,omitempty" validate:"max=10000"`
}

// UpdateDiscussionRequest leaves absent fields untouched. The title a
// discussion is about is fixed at creation.
type UpdateDiscussionRequest struct {
	Headline *string `json:"title,omitempty" validate:"omitempty,min=1,max=400"`
	Content  *string `json:"content,omitempty" validate:"omitempty,max=10000"`
}

func (req UpdateDiscussionRequest) Apply(d *Discussion) {
	if req.Headline != nil {
		d.Headline = *req.Headline
	}
	if req.Content != nil {
		d.Content = *req.Content
	}
}

type CreateCommentRequest struct {
	DiscussionID string `json:"discussion" validate:"required,uuid"`
	Content      string `json:"content" validate:"required,min=1,max=5000"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

// CommentPage is one page of a discussion's comments, newest first.
type CommentPage struct {
	Count    int        `json:"count"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Results  []*Comment `json:"results"`
}
