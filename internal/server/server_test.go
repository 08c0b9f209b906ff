package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/ranking"
	"github.com/spigell/matchmaker/internal/session"
	"github.com/spigell/matchmaker/internal/vehicle"
)

type stubScorer struct {
	score int
	err   error
}

func (s *stubScorer) Name() string { return "stub" }

func (s *stubScorer) Score(context.Context, *ai.Request) (*ai.Assessment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Assessment{Score: s.score, Reasoning: "fits"}, nil
}

func newTestServer(t *testing.T, remote ai.Scorer) *httptest.Server {
	t.Helper()
	inv, err := vehicle.DefaultInventory()
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Inventory: inv,
		Ranker:    &ranking.Ranker{Remote: remote, BatchDelay: time.Millisecond},
		Remote:    remote,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func sampleVehicle() map[string]any {
	return map[string]any{
		"id":           "v1",
		"price":        34850,
		"body_style":   "suv",
		"powertrain":   "hybrid",
		"drivetrain":   "AWD",
		"ext_color":    "Crimson",
		"int_color":    "Black",
		"model":        "RAV4",
		"key_features": []string{"Heated Seats"},
	}
}

func TestHealthAndCORS(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/match-score", nil)
	require.NoError(t, err)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	preflight.Body.Close()
	assert.Equal(t, http.StatusOK, preflight.StatusCode)
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Headers"), "apikey")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), "matchmaker_rank_duration_seconds")
}

func TestMatchScore(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/match-score", map[string]any{
		"vehicle": sampleVehicle(),
		"preferences": map[string]any{
			"body_style":   "suv",
			"color_ext":    "red",
			"budget_total": map[string]any{"max": 40000},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// 20+25+20+10+8
	assert.EqualValues(t, 83, body["match_score"])
}

func TestMatchScoreWithLearning(t *testing.T) {
	srv := newTestServer(t, nil)

	passed := func(id string) map[string]any {
		v := sampleVehicle()
		v["id"] = id
		return v
	}

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/match-score", map[string]any{
		"vehicle":      sampleVehicle(),
		"preferences":  map[string]any{"color_ext": "crimson"},
		"swipeHistory": map[string]any{"favorites": []string{}, "passes": []string{"p1", "p2", "p3"}},
		"allVehicles":  []any{passed("p1"), passed("p2"), passed("p3"), sampleVehicle()},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// 20+25+20+10+3.75
	assert.EqualValues(t, 79, body["match_score"])
}

func TestMatchScoreLearnsFromServedInventory(t *testing.T) {
	served := &vehicle.Vehicles{}
	for _, id := range []string{"p1", "p2", "p3"} {
		served.Items = append(served.Items, &vehicle.Vehicle{ID: id, BodyStyle: "suv", ExtColor: "Crimson", IntColor: "Black"})
	}
	srv := httptest.NewServer(NewRouter(Deps{Inventory: served}))
	t.Cleanup(srv.Close)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/match-score", map[string]any{
		"vehicle":      sampleVehicle(),
		"preferences":  map[string]any{"color_ext": "crimson"},
		"swipeHistory": map[string]any{"favorites": []string{}, "passes": []string{"p1", "p2", "p3"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// 20+25+20+10+3.75
	assert.EqualValues(t, 79, body["match_score"])
}

func TestMatchScoreBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "malformed", body: "{", want: "invalid JSON"},
		{name: "empty", body: nil, want: "empty"},
		{name: "missing vehicle", body: map[string]any{"preferences": map[string]any{}}, want: "vehicle is required"},
		{
			name: "bad powertrain",
			body: map[string]any{
				"vehicle":     map[string]any{"id": "x", "powertrain": "steam", "drivetrain": "AWD"},
				"preferences": map[string]any{},
			},
			want: "powertrain must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/match-score", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestAIMatchScore(t *testing.T) {
	body := map[string]any{"vehicle": sampleVehicle(), "preferences": map[string]any{}}

	tests := []struct {
		name   string
		remote ai.Scorer
		status int
		check  func(t *testing.T, out map[string]any)
	}{
		{
			name:   "ok",
			remote: &stubScorer{score: 77},
			status: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.EqualValues(t, 77, out["match_score"])
				assert.Equal(t, "fits", out["reasoning"])
			},
		},
		{
			name:   "not configured",
			status: http.StatusInternalServerError,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, ai.ErrNotConfigured.Error(), out["error"])
			},
		},
		{
			name:   "rate limited",
			remote: &stubScorer{err: &ai.StatusError{Code: http.StatusTooManyRequests}},
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "Rate limit exceeded", out["error"])
			},
		},
		{
			name:   "quota",
			remote: &stubScorer{err: fmt.Errorf("call: %w", &ai.StatusError{Code: http.StatusPaymentRequired})},
			status: http.StatusPaymentRequired,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "Payment required", out["error"])
			},
		},
		{
			name:   "unexpected",
			remote: &stubScorer{err: errors.New("boom")},
			status: http.StatusInternalServerError,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, "boom", out["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.remote)
			resp, out := do(t, http.MethodPost, srv.URL+"/api/v1/ai-match-score", body)
			assert.Equal(t, tt.status, resp.StatusCode)
			tt.check(t, out)
		})
	}
}

func TestRankFallsBackOnRateLimit(t *testing.T) {
	srv := newTestServer(t, &stubScorer{err: &ai.StatusError{Code: http.StatusTooManyRequests}})

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/rank", map[string]any{
		"preferences":  map[string]any{"body_style": "suv"},
		"swipeHistory": map[string]any{"favorites": []string{"camry-se"}, "passes": []string{}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	vehicles := body["vehicles"].(map[string]any)["vehicles"].([]any)
	inv, err := vehicle.DefaultInventory()
	require.NoError(t, err)
	assert.Len(t, vehicles, inv.Len()-1, "the favorited vehicle is filtered out")

	report := body["report"].(map[string]any)
	assert.Contains(t, report["notice"], "rate limited")
	assert.EqualValues(t, inv.Len()-1, report["fallback"])

	top := vehicles[0].(map[string]any)
	assert.Equal(t, "suv", top["body_style"])
	assert.EqualValues(t, 90, top["match_score"])
}

type hangingScorer struct{}

func (hangingScorer) Name() string { return "hanging" }

func (hangingScorer) Score(ctx context.Context, _ *ai.Request) (*ai.Assessment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRankReturnsStandardScoresWhenOutOfTime(t *testing.T) {
	inv, err := vehicle.DefaultInventory()
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Inventory:      inv,
		Ranker:         &ranking.Ranker{Remote: hangingScorer{}},
		HandlerTimeout: 300 * time.Millisecond,
	}))
	t.Cleanup(srv.Close)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/rank", map[string]any{
		"preferences": map[string]any{"body_style": "suv"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := body["report"].(map[string]any)
	assert.Contains(t, report["notice"], "ran out of time")
	assert.EqualValues(t, inv.Len(), report["fallback"])

	top := body["vehicles"].(map[string]any)["vehicles"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 90, top["match_score"])
}

func TestVehicles(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/vehicles", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["vehicles"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/vehicles/camry-se", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Camry", body["model"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/vehicles/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	api := srv.URL + "/api/v1/sessions"

	resp, body := do(t, http.MethodPost, api, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)
	base := api + "/" + id

	resp, body = do(t, http.MethodPut, base+"/preferences", map[string]any{"body_style": "truck"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "truck", body["preferences"].(map[string]any)["body_style"])

	resp, body = do(t, http.MethodGet, base+"/deck", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deck := body["vehicles"].([]any)
	top := deck[0].(map[string]any)
	assert.Equal(t, "truck", top["body_style"])

	topID := top["id"].(string)
	resp, body = do(t, http.MethodPost, base+"/favorites/"+topID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, len(deck)-1, body["remaining"])

	resp, _ = do(t, http.MethodPost, base+"/passes/"+topID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/passes/no-such-car", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base+"/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, topID, body["vehicle_id"])

	resp, _ = do(t, http.MethodPost, base+"/undo", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/favorites/"+topID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, http.MethodDelete, base+"/favorites/"+topID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, len(deck), body["remaining"])
	resp, _ = do(t, http.MethodDelete, base+"/favorites/"+topID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/passes/"+topID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, http.MethodDelete, base+"/passes/"+topID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, len(deck), body["remaining"])

	resp, body = do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["id"])

	resp, _ = do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, strings.Contains(body["error"].(string), session.ErrUnknownSession.Error()))
}

func TestServerShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(Config{}, NewRouter(Deps{}), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}
