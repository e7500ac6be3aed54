package integrationtests

import (
	"auction-engine/internal/auth"
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/collaborators"
	"auction-engine/internal/config"
	"auction-engine/internal/db"
	"auction-engine/internal/metrics"
	"auction-engine/internal/repository"
	"auction-engine/internal/server"
	"auction-engine/internal/settlement"
	"auction-engine/internal/sweeper"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{Secret: "integration-secret", Issuer: "auction-engine", TTL: time.Hour}

// stores every integration scenario runs against
var stores = []string{config.StoreMemory, config.StoreSQLite}

// TestEnv is a fully wired engine behind the HTTP router
type TestEnv struct {
	Router    *gin.Engine
	Repo      repository.AuctionDB
	Users     *collaborators.UserDirectory
	Inventory *collaborators.Inventory
	Orders    *collaborators.OrderBook
	Sweeper   *sweeper.Sweeper
	Registry  *prometheus.Registry
}

// SetupTestEnv initializes the router over the given store for integration testing.
// The sweeper's clock runs an hour ahead so every auction in a test is due.
func SetupTestEnv(t *testing.T, driver string) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := openRepo(t, driver)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	env := &TestEnv{
		Repo:      repo,
		Users:     collaborators.NewUserDirectory(),
		Inventory: collaborators.NewInventory(),
		Orders:    collaborators.NewOrderBook(),
		Registry:  reg,
	}

	service := bidding.NewBiddingService(repo, bidding.WithMetrics(m))
	coordinator := settlement.NewCoordinator(repo, env.Users, env.Inventory, env.Orders,
		settlement.WithMetrics(m),
		settlement.WithTimeout(time.Second),
	)

	sw, err := sweeper.New(sweeper.Params{
		Auctions: repo,
		Settler:  coordinator,
		Lock:     sweeper.NewLocalLock(),
		Metrics:  m,
		Clock:    func() time.Time { return time.Now().UTC().Add(time.Hour) },
	})
	require.NoError(t, err)
	env.Sweeper = sw

	env.Router = server.SetupRouter(server.Dependencies{
		Service:  service,
		Settler:  coordinator,
		Gatherer: reg,
		JWT:      testJWT,
	})
	return env
}

func openRepo(t *testing.T, driver string) repository.AuctionDB {
	t.Helper()
	if driver == config.StoreMemory {
		return repository.NewMemoryRepo()
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	client, err := db.New(context.Background(), config.StoreConfig{
		Driver: driver,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	repo := repository.NewGormRepo(client.DB())
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

// Token mints a bearer token for id
func Token(t *testing.T, id string, role auth.Role) string {
	t.Helper()
	tok, err := auth.MintToken(testJWT, time.Now(), auth.Principal{ID: id, Role: role})
	require.NoError(t, err)
	return tok
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// CreateAuction creates an open auction as sellerID and returns its ID
func CreateAuction(t *testing.T, env *TestEnv, sellerID, subjectID, startingPrice string) string {
	t.Helper()
	now := time.Now().UTC()
	resp, w := ExecuteRequestAndParse(t, env.Router, "POST", "/auctions", Token(t, sellerID, auth.RoleSeller), map[string]any{
		"subject_id":     subjectID,
		"description":    "integration lot",
		"starting_price": startingPrice,
		"start_time":     now.Add(-time.Minute).Format(time.RFC3339Nano),
		"end_time":       now.Add(time.Hour).Format(time.RFC3339Nano),
	})
	require.Equal(t, 201, w.Code, w.Body.String())
	return resp["data"].(map[string]any)["auction_id"].(string)
}

// Bid places a bid as bidderID and returns the HTTP status
func Bid(t *testing.T, env *TestEnv, auctionID, bidderID string, amount any) int {
	t.Helper()
	_, w := ExecuteRequestAndParse(t, env.Router, "POST", "/auctions/"+auctionID+"/bids", Token(t, bidderID, auth.RoleBidder), map[string]any{"amount": amount})
	return w.Code
}
