package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"auction-engine/internal/auth"
	bidding "auction-engine/internal/biddingService"
	"auction-engine/internal/collaborators"
	"auction-engine/internal/config"
	"auction-engine/internal/metrics"
	"auction-engine/internal/repository"
	"auction-engine/internal/settlement"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var testJWT = config.JWTConfig{Secret: "router-secret", Issuer: "auction-engine", TTL: time.Hour}

func setupRouter(t *testing.T, ready func() error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repo := repository.NewMemoryRepo()
	service := bidding.NewBiddingService(repo, bidding.WithMetrics(m))
	coordinator := settlement.NewCoordinator(repo, collaborators.NewUserDirectory(), collaborators.NewInventory(), collaborators.NewOrderBook(), settlement.WithMetrics(m))

	return SetupRouter(Dependencies{
		Service:  service,
		Settler:  coordinator,
		Gatherer: reg,
		JWT:      testJWT,
		Ready:    ready,
	})
}

func token(t *testing.T, id string, role auth.Role) string {
	t.Helper()
	tok, err := auth.MintToken(testJWT, time.Now(), auth.Principal{ID: id, Role: role})
	require.NoError(t, err)
	return tok
}

func serve(router *gin.Engine, method, path, tok string, body any) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_AuthAndRoles(t *testing.T) {
	t.Parallel()

	router := setupRouter(t, nil)
	now := time.Now().UTC()
	create := map[string]any{
		"subject_id":     "crop-1",
		"starting_price": "100",
		"start_time":     now.Add(-time.Minute).Format(time.RFC3339),
		"end_time":       now.Add(time.Hour).Format(time.RFC3339),
	}

	w := serve(router, http.MethodPost, "/auctions", "", create)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodPost, "/auctions", "not-a-token", create)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodPost, "/auctions", token(t, "seller1", auth.RoleSeller), create)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			AuctionID string `json:"auction_id"`
			SellerID  string `json:"seller_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "seller1", created.Data.SellerID)
	auctionPath := "/auctions/" + created.Data.AuctionID

	// public reads
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/auctions", "", nil).Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, auctionPath, "", nil).Code)

	w = serve(router, http.MethodPost, auctionPath+"/bids", token(t, "user1", auth.RoleBidder), map[string]any{"amount": 150})
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, http.MethodGet, "/bidders/user1/auctions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), created.Data.AuctionID)

	// only admins delete
	w = serve(router, http.MethodDelete, auctionPath, token(t, "seller1", auth.RoleSeller), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = serve(router, http.MethodDelete, auctionPath, token(t, "root", auth.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, auctionPath, "", nil).Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	router := setupRouter(t, nil)
	w := serve(router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// generate one bid sample so the counter family is exported
	serve(router, http.MethodPost, "/auctions/missing/bids", token(t, "user1", auth.RoleBidder), map[string]any{"amount": 1})

	w = serve(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "auction_bids_total"))

	down := setupRouter(t, func() error { return errors.New("store unreachable") })
	require.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/healthz", "", nil).Code)
}
