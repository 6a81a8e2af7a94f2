package vkapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Sternrassler/vk-watch/internal/testutil"
	"github.com/Sternrassler/vk-watch/pkg/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, mock *testutil.MockVK) *Client {
	t.Helper()

	cfg := DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 0
	cfg.AuxiliaryTimeout = 200 * time.Millisecond
	cfg.PrimaryTimeout = 500 * time.Millisecond

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		target      error
	}{
		{
			name:        "valid config",
			mutate:      func(*Config) {},
			expectError: false,
		},
		{
			name:        "empty token",
			mutate:      func(c *Config) { c.AccessToken = "" },
			expectError: true,
			target:      ErrMissingToken,
		},
		{
			name:        "whitespace token",
			mutate:      func(c *Config) { c.AccessToken = "   " },
			expectError: true,
			target:      ErrMissingToken,
		},
		{
			name:        "placeholder token",
			mutate:      func(c *Config) { c.AccessToken = "your_token_here" },
			expectError: true,
			target:      ErrMissingToken,
		},
		{
			name:        "missing version",
			mutate:      func(c *Config) { c.APIVersion = "" },
			expectError: true,
		},
		{
			name:        "missing base url",
			mutate:      func(c *Config) { c.BaseURL = "" },
			expectError: true,
		},
		{
			name:        "zero timeout",
			mutate:      func(c *Config) { c.AuxiliaryTimeout = 0 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("token")
			tt.mutate(&cfg)

			client, err := New(cfg)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if tt.target != nil && !errors.Is(err, tt.target) {
					t.Errorf("error = %v, want %v", err, tt.target)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("token")

	if cfg.APIVersion != "5.199" {
		t.Errorf("APIVersion = %q, want 5.199", cfg.APIVersion)
	}
	if cfg.PrimaryTimeout <= cfg.AuxiliaryTimeout {
		t.Errorf("PrimaryTimeout %v should exceed AuxiliaryTimeout %v", cfg.PrimaryTimeout, cfg.AuxiliaryTimeout)
	}
	if cfg.RequestsPerSecond <= 0 {
		t.Errorf("RequestsPerSecond = %v, should be > 0", cfg.RequestsPerSecond)
	}
}

func TestUsersGet(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()

	mock.SetHandler(MethodUsersGet, testutil.NewUsersHandler(map[int64]map[string]any{
		100: {
			"first_name": "Ivan",
			"last_name":  "Petrov",
			"online":     1,
			"city":       map[string]any{"id": 1, "title": "Moscow"},
			"bdate":      "12.3",
			"counters":   map[string]any{"friends": 5, "photos": 10},
			"domain":     "ivan",
			"last_seen":  map[string]any{"time": 1700000000, "platform": 7},
		},
	}))

	client := newTestClient(t, mock)
	users, err := client.UsersGet(context.Background(), []int64{100, 200})
	if err != nil {
		t.Fatalf("UsersGet() error = %v", err)
	}

	if len(users) != 1 {
		t.Fatalf("len(users) = %d, want 1", len(users))
	}
	u := users[0]
	if u.ID != 100 || u.FirstName != "Ivan" || u.Online != 1 || u.Domain != "ivan" {
		t.Errorf("unexpected profile: %+v", u)
	}
	if u.City == nil || u.City.Title != "Moscow" {
		t.Errorf("City = %+v, want Moscow", u.City)
	}
	if u.BirthDate == nil || *u.BirthDate != "12.3" {
		t.Errorf("BirthDate = %v, want 12.3", u.BirthDate)
	}
	if u.Counters.Friends == nil || *u.Counters.Friends != 5 {
		t.Errorf("Counters.Friends = %v, want 5", u.Counters.Friends)
	}
	if u.LastSeen == nil || u.LastSeen.Time != 1700000000 {
		t.Errorf("LastSeen = %+v", u.LastSeen)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	q := calls[0].Query
	if q.Get("user_ids") != "100,200" {
		t.Errorf("user_ids = %q", q.Get("user_ids"))
	}
	if q.Get("fields") != ProfileFields {
		t.Errorf("fields = %q", q.Get("fields"))
	}
	if q.Get("access_token") != "test-token" || q.Get("v") != "5.199" {
		t.Errorf("credential params = %v", q)
	}
}

func TestUsersGet_Limits(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()
	client := newTestClient(t, mock)

	users, err := client.UsersGet(context.Background(), nil)
	if err != nil || users != nil {
		t.Errorf("UsersGet(nil) = %v, %v; want nil, nil", users, err)
	}

	ids := make([]int64, MaxUsersPerCall+1)
	if _, err := client.UsersGet(context.Background(), ids); err == nil {
		t.Error("UsersGet should reject more than MaxUsersPerCall ids")
	}

	if mock.CallCount() != 0 {
		t.Errorf("CallCount = %d, want 0", mock.CallCount())
	}
}

func TestUsersGet_ErrorEnvelope(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()
	mock.SetResponse(MethodUsersGet, testutil.NewErrorResponse(ErrCodeAuthFailed, "User authorization failed"))

	client := newTestClient(t, mock)
	_, err := client.UsersGet(context.Background(), []int64{1})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Code != ErrCodeAuthFailed || apiErr.Method != MethodUsersGet {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestCounters(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()

	mock.SetResponse(MethodFriendsGet, testutil.NewCountResponse(5))
	mock.SetResponse(MethodUsersGetFollowers, testutil.NewCountResponse(7))
	mock.SetResponse(MethodGroupsGet, testutil.NewCountResponse(3))
	mock.SetResponse(MethodWallGet, testutil.NewCountResponse(12))
	mock.SetResponse(MethodUsersGetSubscriptions, testutil.MockVKResponse{
		Body: `{"response":{"users":{"count":4,"items":[]},"groups":{"count":9,"items":[]}}}`,
	})

	client := newTestClient(t, mock)
	ctx := context.Background()

	tests := []struct {
		name   string
		lookup func(context.Context, int64) (int, error)
		want   int
	}{
		{"friends", client.FriendsCount, 5},
		{"followers", client.FollowersCount, 7},
		{"subscriptions", client.SubscriptionsCount, 4},
		{"groups", client.GroupsCount, 3},
		{"wall", client.WallCount, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup(ctx, 100)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("count = %d, want %d", got, tt.want)
			}
		})
	}

	for _, c := range mock.Calls() {
		if c.Method == MethodWallGet {
			if c.Query.Get("owner_id") != "100" {
				t.Errorf("wall.get owner_id = %q, want 100", c.Query.Get("owner_id"))
			}
			continue
		}
		if c.Query.Get("user_id") != "100" {
			t.Errorf("%s user_id = %q, want 100", c.Method, c.Query.Get("user_id"))
		}
	}
}

func TestSubscriptionsCount_FlatShape(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()
	mock.SetResponse(MethodUsersGetSubscriptions, testutil.NewCountResponse(8))

	client := newTestClient(t, mock)
	got, err := client.SubscriptionsCount(context.Background(), 1)
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if got != 8 {
		t.Errorf("count = %d, want 8", got)
	}
}

func TestCounters_Failures(t *testing.T) {
	tests := []struct {
		name      string
		response  testutil.MockVKResponse
		wantClass ErrorClass
	}{
		{
			name:      "private profile",
			response:  testutil.NewAccessDeniedResponse(),
			wantClass: ErrorClassAccessDenied,
		},
		{
			name:      "access denied",
			response:  testutil.NewErrorResponse(ErrCodeAccessDenied, "Access denied"),
			wantClass: ErrorClassAccessDenied,
		},
		{
			name:      "user deleted",
			response:  testutil.NewErrorResponse(ErrCodeUserDeleted, "User was deleted or banned"),
			wantClass: ErrorClassUnexpected,
		},
		{
			name:      "timeout",
			response:  testutil.NewTimeoutResponse(2 * time.Second),
			wantClass: ErrorClassTransient,
		},
		{
			name:      "server error",
			response:  testutil.NewServerErrorResponse(),
			wantClass: ErrorClassTransient,
		},
		{
			name:      "not json",
			response:  testutil.MockVKResponse{Body: "<html>"},
			wantClass: ErrorClassUnexpected,
		},
		{
			name:      "missing count",
			response:  testutil.MockVKResponse{Body: `{"response":{"items":[]}}`},
			wantClass: ErrorClassUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockVK()
			defer mock.Close()
			mock.SetResponse(MethodGroupsGet, tt.response)

			client := newTestClient(t, mock)
			_, err := client.GroupsCount(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Classify(err); got != tt.wantClass {
				t.Errorf("Classify() = %q, want %q (err = %v)", got, tt.wantClass, err)
			}
		})
	}
}

func TestCall_TimeoutIsReportedAsTimeout(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()
	mock.SetResponse(MethodWallGet, testutil.NewTimeoutResponse(2*time.Second))

	client := newTestClient(t, mock)
	_, err := client.WallCount(context.Background(), 1)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if !transportErr.Timeout() {
		t.Errorf("Timeout() = false for %v", err)
	}
}

func TestCall_QuotaBlock(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	mock := testutil.NewMockVK()
	defer mock.Close()
	mock.SetResponse(MethodWallGet, testutil.NewErrorResponse(ErrCodeRateLimitReached, "Rate limit reached"))
	mock.SetResponse(MethodFriendsGet, testutil.NewCountResponse(1))

	cfg := DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 0
	cfg.Quota = ratelimit.NewTracker(redisClient, zerolog.New(os.Stderr).Level(zerolog.Disabled))
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	_, err = client.WallCount(ctx, 1)
	if Classify(err) != ErrorClassUnexpected {
		t.Fatalf("first call class = %q, want unexpected (err = %v)", Classify(err), err)
	}

	_, err = client.WallCount(ctx, 2)
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("second call error = %v, want ErrQuotaExhausted", err)
	}
	if Classify(err) != ErrorClassTransient {
		t.Errorf("quota skip class = %q, want transient", Classify(err))
	}

	if _, err := client.FriendsCount(ctx, 1); err != nil {
		t.Errorf("other methods should stay available: %v", err)
	}

	if got := mock.MethodCount(MethodWallGet); got != 1 {
		t.Errorf("wall.get calls = %d, want 1", got)
	}
}

func TestCall_GateSpacesRequests(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()
	mock.SetResponse(MethodFriendsGet, testutil.NewCountResponse(1))

	cfg := DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerSecond = 20
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.FriendsCount(context.Background(), 1); err != nil {
			t.Fatalf("FriendsCount() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 gated calls took %v, want >= 80ms", elapsed)
	}
}

func TestCall_HTTPStatus(t *testing.T) {
	mock := testutil.NewMockVK()
	defer mock.Close()
	mock.SetResponse(MethodFriendsGet, testutil.MockVKResponse{StatusCode: http.StatusBadGateway})

	client := newTestClient(t, mock)
	_, err := client.FriendsCount(context.Background(), 1)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if transportErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", transportErr.StatusCode)
	}
}
