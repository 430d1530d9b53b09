package clients

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"watchlist-service/internal/api"
	"watchlist-service/internal/domain"
	titlerpc "watchlist-service/internal/grpc"
	"watchlist-service/internal/store"
)

var _ api.TitleDirectory = (TitleServiceClient)(nil)

func newPeer(t *testing.T) (TitleServiceClient, store.TitleStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	titles := store.NewMemoryTitleStore(logger)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	titlerpc.RegisterTitleInterServiceServer(srv, titlerpc.NewServer(titles, logger))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := NewTitleServiceGRPCClient("passthrough:///bufnet", logger,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, titles
}

func TestTitleServiceClient(t *testing.T) {
	client, titles := newPeer(t)
	ctx := context.Background()

	totalSeasons := 8
	series := &domain.Title{
		ID:           uuid.NewString(),
		Kind:         domain.KindSeries,
		Title:        "Game of Thrones",
		Year:         "2011–2019",
		ExternalID:   "tt0944947",
		TotalSeasons: &totalSeasons,
	}
	require.NoError(t, titles.CreateSeries(ctx, series))

	exists, err := client.CheckTitleExists(ctx, series.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.CheckTitleExists(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, exists)

	info, err := client.GetTitleInfo(ctx, series.ID)
	require.NoError(t, err)
	assert.Equal(t, series.ID, info.ID)
	assert.Equal(t, domain.KindSeries, info.Kind)
	assert.Equal(t, "tt0944947", info.ExternalID)
	assert.Equal(t, "2011–2019", info.Year)
	assert.Nil(t, info.Rating)

	_, err = client.GetTitleInfo(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTitleServiceClient_EmptyIDFailsLocally(t *testing.T) {
	client, _ := newPeer(t)

	_, err := client.CheckTitleExists(context.Background(), "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetTitleInfo(context.Background(), "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
