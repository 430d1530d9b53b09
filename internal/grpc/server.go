// Package grpc exposes stored titles to other services.
package grpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"watchlist-service/internal/domain"
	"watchlist-service/internal/store"
)

// Server implements TitleInterServiceServer on top of the title store.
type Server struct {
	store  store.TitleStore
	logger *slog.Logger
}

func NewServer(titleStore store.TitleStore, logger *slog.Logger) *Server {
	return &Server{
		store:  titleStore,
		logger: logger,
	}
}

// TitleInfo flattens a title summary into the struct peers consume.
func TitleInfo(summary *domain.TitleSummary) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"id":          summary.ID,
		"title":       summary.Title,
		"kind":        string(summary.Kind),
		"external_id": summary.ExternalID,
		"year":        summary.Year,
		"rating":      nil,
	}
	if summary.Rating != nil {
		fields["rating"] = *summary.Rating
	}
	return structpb.NewStruct(fields)
}

func (s *Server) GetTitleInfo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	titleID := req.GetValue()
	s.logger.InfoContext(ctx, "gRPC GetTitleInfo called", slog.String("title_id", titleID))

	if titleID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "title_id cannot be empty")
	}
	if _, err := uuid.Parse(titleID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "title_id %q is not a valid UUID", titleID)
	}

	title, err := s.store.GetByID(ctx, titleID)
	if err != nil {
		if errors.Is(err, store.ErrTitleNotFound) {
			s.logger.WarnContext(ctx, "Title not found for GetTitleInfo", slog.String("title_id", titleID))
			return nil, status.Errorf(codes.NotFound, "title not found with ID %s", titleID)
		}
		s.logger.ErrorContext(ctx, "Failed to get title for GetTitleInfo", slog.String("title_id", titleID), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to retrieve title details: %v", err)
	}

	info, err := TitleInfo(title.Summary())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode title: %v", err)
	}
	return info, nil
}

func (s *Server) CheckTitleExists(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	titleID := req.GetValue()
	s.logger.InfoContext(ctx, "gRPC CheckTitleExists called", slog.String("title_id", titleID))

	if titleID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "title_id cannot be empty")
	}
	if _, err := uuid.Parse(titleID); err != nil {
		return wrapperspb.Bool(false), nil
	}

	if _, err := s.store.GetByID(ctx, titleID); err != nil {
		if errors.Is(err, store.ErrTitleNotFound) {
			return wrapperspb.Bool(false), nil
		}
		s.logger.ErrorContext(ctx, "Failed to check title existence", slog.String("title_id", titleID), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to check title existence: %v", err)
	}
	return wrapperspb.Bool(true), nil
}
