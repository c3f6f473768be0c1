package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"balance-game-backend/internal/config"
	"balance-game-backend/internal/handlers"
	"balance-game-backend/internal/middleware"
	"balance-game-backend/internal/services"
)

const (
	alice = "0x00000000000000000000000000000000000a11ce"
	bob   = "0x0000000000000000000000000000000000000b0b"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type denyLimiter struct{}

func (denyLimiter) CheckRateLimit(ctx context.Context, subject, action string, limit int, window time.Duration) (bool, error) {
	return false, nil
}

type testEnv struct {
	ts     *httptest.Server
	clock  *testClock
	ledger *services.Ledger
	bank   *services.MemoryBank
	jwt    *services.JWTService
	hub    *handlers.WebSocketHub
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEnv(t *testing.T, limiter middleware.RateLimiter) *testEnv {
	t.Helper()

	clock := &testClock{now: time.Unix(1700000000, 0)}
	bank := services.NewMemoryBank(100)
	hub := handlers.NewWebSocketHub()
	ledger := services.NewLedger(bank, services.WithClock(clock.Now), services.WithBroadcaster(hub))
	jwtService := services.NewJWTService(&config.Config{JWTSecret: "test-secret", JWTTTL: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := handlers.NewRouter(handlers.RouterDeps{
		Ledger:          ledger,
		Bank:            bank,
		JWT:             jwtService,
		Hub:             hub,
		Limiter:         limiter,
		VotesPerMinute:  30,
		ClaimsPerMinute: 60,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})

	return &testEnv{ts: ts, clock: clock, ledger: ledger, bank: bank, jwt: jwtService, hub: hub}
}

func (e *testEnv) token(t *testing.T, address string) string {
	t.Helper()
	token, err := e.jwt.GenerateToken(address)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, address string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if address != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, address))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response of %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func createGame(t *testing.T, env *testEnv, minutes int) {
	t.Helper()
	status, body := env.do(t, http.MethodPost, "/api/games", alice, map[string]any{
		"question":            "Cats or dogs?",
		"option_a":            "Cats",
		"option_b":            "Dogs",
		"duration_in_minutes": minutes,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected status %d, got %d (%v)", http.StatusCreated, status, body)
	}
}

func vote(t *testing.T, env *testEnv, address string, isOptionA bool, amount uint64) (int, map[string]any) {
	t.Helper()
	return env.do(t, http.MethodPost, "/api/games/0/vote", address, map[string]any{
		"is_option_a": isOptionA,
		"amount":      amount,
	})
}

func TestRequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)

	status, _ := env.do(t, http.MethodGet, "/api/games", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, status)
	}
}

func TestCreateAndReadGame(t *testing.T) {
	env := newTestEnv(t, nil)
	createGame(t, env, 10)

	status, body := env.do(t, http.MethodGet, "/api/games/0", bob, nil)
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}
	game := body["game"].(map[string]any)
	if game["creator"] != alice {
		t.Errorf("expected creator %s, got %v", alice, game["creator"])
	}
	if game["end_time"].(float64) != 1700000000+600 {
		t.Errorf("unexpected end time %v", game["end_time"])
	}
	if game["is_active"] != true {
		t.Error("new game should be active")
	}

	_, body = env.do(t, http.MethodGet, "/api/games/count", bob, nil)
	if body["count"].(float64) != 1 {
		t.Errorf("expected count 1, got %v", body["count"])
	}

	status, body = env.do(t, http.MethodGet, "/api/games/7", bob, nil)
	if status != http.StatusNotFound || body["code"] != "GAME_NOT_FOUND" {
		t.Errorf("expected GAME_NOT_FOUND, got %d %v", status, body)
	}
}

func TestCreateGameValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, http.MethodPost, "/api/games", alice, map[string]any{
		"question":            "Left or right?",
		"option_a":            "Left",
		"option_b":            "Right",
		"duration_in_minutes": 0,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
	if body["error"] != "Duration must be at least 1 minute" {
		t.Errorf("unexpected error %v", body["error"])
	}

	status, _ = env.do(t, http.MethodPost, "/api/games", alice, map[string]any{
		"question":            "   ",
		"option_a":            "Left",
		"option_b":            "Right",
		"duration_in_minutes": 5,
	})
	if status != http.StatusBadRequest {
		t.Errorf("blank question should be rejected, got %d", status)
	}
}

func TestVoteAndClaimFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	createGame(t, env, 10)

	if status, body := vote(t, env, alice, true, 10); status != http.StatusOK {
		t.Fatalf("alice vote failed: %d %v", status, body)
	}
	status, body := vote(t, env, bob, false, 5)
	if status != http.StatusOK {
		t.Fatalf("bob vote failed: %d %v", status, body)
	}
	game := body["game"].(map[string]any)
	if game["total_amount"].(float64) != 15 {
		t.Errorf("expected total 15, got %v", game["total_amount"])
	}

	status, body = env.do(t, http.MethodGet, "/api/games/0/quote", alice, nil)
	quote := body["quote"].(map[string]any)
	if status != http.StatusOK || quote["eligible"] != false || quote["reason"] != "GAME_NOT_ENDED" {
		t.Errorf("expected ineligible quote before the end, got %d %v", status, body)
	}

	status, body = env.do(t, http.MethodPost, "/api/games/0/claim", alice, nil)
	if status != http.StatusConflict || body["code"] != "GAME_NOT_ENDED" {
		t.Errorf("expected GAME_NOT_ENDED, got %d %v", status, body)
	}

	env.clock.Advance(10 * time.Minute)

	status, body = vote(t, env, bob, false, 5)
	if status != http.StatusConflict || body["code"] != "GAME_CLOSED" {
		t.Errorf("expected GAME_CLOSED, got %d %v", status, body)
	}

	_, body = env.do(t, http.MethodGet, "/api/games/0/winner", bob, nil)
	if body["winner"] != "A" || body["is_final"] != true {
		t.Errorf("expected final winner A, got %v", body)
	}

	_, body = env.do(t, http.MethodGet, "/api/games/0/quote", alice, nil)
	quote = body["quote"].(map[string]any)
	if quote["eligible"] != true || quote["reward"].(float64) != 15 {
		t.Errorf("expected quote of 15, got %v", quote)
	}

	status, body = env.do(t, http.MethodPost, "/api/games/0/claim", alice, nil)
	if status != http.StatusOK || body["reward"].(float64) != 15 {
		t.Fatalf("expected reward 15, got %d %v", status, body)
	}

	status, body = env.do(t, http.MethodPost, "/api/games/0/claim", alice, nil)
	if status != http.StatusConflict || body["code"] != "ALREADY_CLAIMED" {
		t.Errorf("expected ALREADY_CLAIMED, got %d %v", status, body)
	}

	status, body = env.do(t, http.MethodPost, "/api/games/0/claim", bob, nil)
	if status != http.StatusForbidden || body["code"] != "NOT_A_WINNER" {
		t.Errorf("expected NOT_A_WINNER, got %d %v", status, body)
	}

	_, body = env.do(t, http.MethodGet, "/api/wallet", alice, nil)
	balance := body["balance"].(map[string]any)
	if balance["balance"].(float64) != 105 || balance["total_won"].(float64) != 15 {
		t.Errorf("unexpected alice wallet %v", balance)
	}

	_, body = env.do(t, http.MethodGet, "/api/wallet/transactions", alice, nil)
	if body["count"].(float64) != 2 {
		t.Errorf("expected stake and reward in history, got %v", body)
	}

	_, body = env.do(t, http.MethodGet, "/api/games/0/votes/"+alice, bob, nil)
	record := body["vote"].(map[string]any)
	if record["claimed"] != true || record["option_a_amount"].(float64) != 10 {
		t.Errorf("unexpected vote record %v", record)
	}
}

func TestVoteRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	createGame(t, env, 10)

	status, body := vote(t, env, alice, true, 0)
	if status != http.StatusBadRequest || body["code"] != "ZERO_STAKE" {
		t.Errorf("expected ZERO_STAKE, got %d %v", status, body)
	}

	status, body = vote(t, env, alice, true, 1000)
	if status != http.StatusPaymentRequired || body["code"] != "INSUFFICIENT_FUNDS" {
		t.Errorf("expected INSUFFICIENT_FUNDS, got %d %v", status, body)
	}

	status, body = env.do(t, http.MethodPost, "/api/games/0/vote", alice, map[string]any{"amount": 5})
	if status != http.StatusBadRequest || body["error"] != "is_option_a is required" {
		t.Errorf("expected missing side to be rejected, got %d %v", status, body)
	}

	status, body = env.do(t, http.MethodPost, "/api/games/3/vote", alice, map[string]any{
		"is_option_a": true,
		"amount":      1,
	})
	if status != http.StatusNotFound || body["code"] != "GAME_NOT_FOUND" {
		t.Errorf("expected GAME_NOT_FOUND, got %d %v", status, body)
	}

	status, _ = env.do(t, http.MethodGet, "/api/games/0/votes/not-an-address", alice, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected malformed voter to be rejected, got %d", status)
	}
}

func TestListGamesAndEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	createGame(t, env, 10)
	createGame(t, env, 10)

	status, body := env.do(t, http.MethodPost, "/api/games/1/vote", bob, map[string]any{
		"is_option_a": false,
		"amount":      7,
	})
	if status != http.StatusOK {
		t.Fatalf("vote failed: %d %v", status, body)
	}

	_, body = env.do(t, http.MethodGet, "/api/games?sort=pool&limit=1", alice, nil)
	games := body["games"].([]any)
	if len(games) != 1 || games[0].(map[string]any)["id"].(float64) != 1 {
		t.Errorf("expected game 1 to lead by pool, got %v", games)
	}

	status, _ = env.do(t, http.MethodGet, "/api/games?sort=size", alice, nil)
	if status != http.StatusBadRequest {
		t.Errorf("expected unknown sort to be rejected, got %d", status)
	}

	_, body = env.do(t, http.MethodGet, "/api/events?after=1", alice, nil)
	events := body["events"].([]any)
	if len(events) != 2 || body["last_seq"].(float64) != 3 {
		t.Fatalf("expected events 2 and 3, got %v", body)
	}
	last := events[1].(map[string]any)
	if last["type"] != "VoteCast" || last["seq"].(float64) != 3 {
		t.Errorf("unexpected last event %v", last)
	}
}

func TestVoteRateLimited(t *testing.T) {
	env := newTestEnv(t, denyLimiter{})
	createGame(t, env, 10)

	status, body := vote(t, env, alice, true, 1)
	if status != http.StatusTooManyRequests || body["code"] != "RATE_LIMITED" {
		t.Errorf("expected RATE_LIMITED, got %d %v", status, body)
	}
	if env.ledger.GetVote(0, alice).HasStake() {
		t.Error("limited vote must not reach the ledger")
	}
}

func TestWebSocketPushesEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/ws?token=" + env.token(t, bob)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg handlers.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	if msg.Type != "BALANCE_UPDATE" || msg.Address != bob {
		t.Fatalf("expected balance update for bob, got %+v", msg)
	}

	createGame(t, env, 10)

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if msg.Type != "LEDGER_EVENT" || msg.Seq != 1 || msg.GameID == nil || *msg.GameID != 0 {
		t.Errorf("expected first ledger event, got %+v", msg)
	}

	if err := conn.WriteJSON(handlers.Message{Type: "PING"}); err != nil {
		t.Fatalf("failed to ping: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read pong: %v", err)
	}
	if msg.Type != "PONG" {
		t.Errorf("expected PONG, got %s", msg.Type)
	}
}
