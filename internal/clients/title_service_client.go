// Package clients holds gRPC clients for peer watchlist instances.
package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"watchlist-service/internal/domain"
	titlerpc "watchlist-service/internal/grpc"
)

const callTimeout = 3 * time.Second

// TitleServiceClient talks to another instance's title service.
type TitleServiceClient interface {
	CheckTitleExists(ctx context.Context, titleID string) (bool, error)
	GetTitleInfo(ctx context.Context, titleID string) (*domain.TitleSummary, error)
	Close() error
}

type titleServiceGRPCClient struct {
	client titlerpc.TitleInterServiceClient
	logger *slog.Logger
	conn   *grpc.ClientConn
}

// NewTitleServiceGRPCClient connects lazily to addr; extra options are
// appended after the insecure transport credentials.
func NewTitleServiceGRPCClient(addr string, logger *slog.Logger, opts ...grpc.DialOption) (TitleServiceClient, error) {
	logger.Info("Creating title service gRPC client", slog.String("address", addr))

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		logger.Error("Failed to create title service gRPC client", slog.String("address", addr), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to connect to title service at %s: %w", addr, err)
	}

	return &titleServiceGRPCClient{
		client: titlerpc.NewTitleInterServiceClient(conn),
		logger: logger,
		conn:   conn,
	}, nil
}

func (c *titleServiceGRPCClient) CheckTitleExists(ctx context.Context, titleID string) (bool, error) {
	c.logger.DebugContext(ctx, "Calling TitleInterService.CheckTitleExists", slog.String("title_id", titleID))
	if titleID == "" {
		return false, status.Errorf(codes.InvalidArgument, "titleID cannot be empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	res, err := c.client.CheckTitleExists(callCtx, wrapperspb.String(titleID))
	if err != nil {
		c.logCallFailure(ctx, "CheckTitleExists", titleID, err)
		return false, fmt.Errorf("grpc CheckTitleExists failed for titleID %s: %w", titleID, err)
	}
	return res.GetValue(), nil
}

func (c *titleServiceGRPCClient) GetTitleInfo(ctx context.Context, titleID string) (*domain.TitleSummary, error) {
	c.logger.DebugContext(ctx, "Calling TitleInterService.GetTitleInfo", slog.String("title_id", titleID))
	if titleID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "titleID cannot be empty")
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	res, err := c.client.GetTitleInfo(callCtx, wrapperspb.String(titleID))
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: title %s: %v", domain.ErrNotFound, titleID, err)
	}
	if err != nil {
		c.logCallFailure(ctx, "GetTitleInfo", titleID, err)
		return nil, fmt.Errorf("grpc GetTitleInfo failed for titleID %s: %w", titleID, err)
	}
	return titleInfoFromStruct(res), nil
}

func (c *titleServiceGRPCClient) logCallFailure(ctx context.Context, method, titleID string, err error) {
	st, _ := status.FromError(err)
	c.logger.ErrorContext(ctx, "TitleInterService."+method+" gRPC call failed",
		slog.String("title_id", titleID),
		slog.String("code", st.Code().String()),
		slog.String("message", st.Message()))
}

func (c *titleServiceGRPCClient) Close() error {
	if c.conn != nil {
		c.logger.Info("Closing gRPC connection to title service")
		return c.conn.Close()
	}
	return nil
}

func titleInfoFromStruct(s *structpb.Struct) *domain.TitleSummary {
	fields := s.GetFields()
	info := &domain.TitleSummary{
		ID:         fields["id"].GetStringValue(),
		Title:      fields["title"].GetStringValue(),
		Kind:       domain.Kind(fields["kind"].GetStringValue()),
		ExternalID: fields["external_id"].GetStringValue(),
		Year:       fields["year"].GetStringValue(),
	}
	if v, ok := fields["rating"].GetKind().(*structpb.Value_NumberValue); ok {
		rating := v.NumberValue
		info.Rating = &rating
	}
	return info
}
