package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/employee-directory/internal/data/repos/employee"
	types "github.com/yungbote/employee-directory/internal/domain"
	httpserver "github.com/yungbote/employee-directory/internal/http"
	httpH "github.com/yungbote/employee-directory/internal/http/handlers"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/realtime"
	"github.com/yungbote/employee-directory/internal/services"
)

func newTestServer(t *testing.T, seed ...types.Employee) (*httptest.Server, *realtime.SSEHub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	repo := employee.NewMemoryRepo(log, seed...)
	hub := realtime.NewSSEHub(log)
	notifier := services.NewChangeNotifier(&services.HubEmitter{Hub: hub}, nil)
	engine := httpserver.NewRouter(httpserver.RouterConfig{
		Log: log,
		EmployeeHandler: httpH.NewEmployeeHandler(log,
			services.NewEmployeeService(log, repo, notifier, nil),
			services.NewAggregateService(log, repo, nil, nil),
			services.NewBulkService(log, repo, types.DefaultTieredIncrement(), notifier, nil),
		),
		RealtimeHandler: httpH.NewRealtimeHandler(log, hub),
	})
	srv := httptest.NewServer(engine)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return srv, hub
}

func TestClientRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	c := New(srv.URL)
	ctx := context.Background()

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	added, err := c.Add(ctx, types.Employee{Name: "  Alice ", Value: 100})
	require.NoError(t, err)
	assert.Equal(t, types.Employee{Name: "Alice", Value: 100}, added)

	sum, err := c.Sum(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum)

	require.NoError(t, c.IncrementAll(ctx))
	sum, err = c.Sum(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum)

	require.NoError(t, c.Update(ctx, "Alice", types.Employee{Name: "Bob/Smith 50%", Value: 7}))
	list, err = c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Employee{{Name: "Bob/Smith 50%", Value: 7}}, list)

	require.NoError(t, c.Delete(ctx, "Bob/Smith 50%"))
	list, err = c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClientKeysWithPlus(t *testing.T) {
	srv, _ := newTestServer(t, types.Employee{Name: "C+D/E", Value: 1}, types.Employee{Name: "F+G", Value: 2})
	c := New(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.Update(ctx, "C+D/E", types.Employee{Name: "C+D/E", Value: 9}))
	require.NoError(t, c.Delete(ctx, "F+G"))
	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Employee{{Name: "C+D/E", Value: 9}}, list)
}

func TestClientErrorsCarryDomainCodes(t *testing.T) {
	srv, _ := newTestServer(t, types.Employee{Name: "Alice", Value: 1})
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.Add(ctx, types.Employee{Name: "Alice", Value: 2})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.True(t, types.IsCode(err, types.CodeNotFoundOrConflict))

	err = c.Delete(ctx, "Nobody")
	assert.True(t, types.IsCode(err, types.CodeNotFoundOrConflict))

	_, err = c.Add(ctx, types.Employee{Name: "   ", Value: 2})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, string(types.CodeValidation), apiErr.Code)
	assert.NotEmpty(t, apiErr.Fields)
}

func TestClientRetriesReadsOnly(t *testing.T) {
	var gets, patches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if gets.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("42"))
		case http.MethodPatch:
			patches.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"db down","code":"store_unavailable"}}`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL)

	sum, err := c.Sum(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), sum)
	assert.Equal(t, int32(2), gets.Load())

	err = c.IncrementAll(context.Background())
	assert.True(t, types.IsCode(err, types.CodeStoreUnavailable))
	assert.Equal(t, int32(1), patches.Load())
}

func TestClientWatch(t *testing.T) {
	srv, hub := newTestServer(t)
	c := New(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan ChangeEvent, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(ev ChangeEvent) { events <- ev })
	}()

	require.Eventually(t, func() bool {
		return hub.Subscribers(realtime.ChannelEmployees) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err := c.Add(context.Background(), types.Employee{Name: "Gus", Value: 3})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, ChangeEvent{Op: services.OpAdd, Name: "Gus"}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
