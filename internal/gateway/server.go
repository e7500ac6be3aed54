package gateway

import (
	"auction-engine/internal/auth"
	"auction-engine/internal/biddingerrors"
	"auction-engine/internal/config"
	"auction-engine/internal/events"
	model "auction-engine/internal/models"
	"auction-engine/utils"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// AuctionEngine is the slice of the lifecycle engine the gateway drives
type AuctionEngine interface {
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Auction, model.Bid, error)
}

type roomRequest struct {
	AuctionID string `json:"auction_id"`
}

type submitBidRequest struct {
	AuctionID string          `json:"auction_id"`
	Amount    decimal.Decimal `json:"amount"`
	BidderID  string          `json:"bidder_id,omitempty"`
}

// Server upgrades authenticated requests and serves the realtime protocol
type Server struct {
	hub      *Hub
	engine   AuctionEngine
	jwt      config.JWTConfig
	cfg      config.GatewayConfig
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, engine AuctionEngine, jwtCfg config.JWTConfig, cfg config.GatewayConfig) *Server {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	return &Server{
		hub:    hub,
		engine: engine,
		jwt:    jwtCfg,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the caller, upgrades the connection and blocks
// reading client frames until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.ParseToken(s.jwt, auth.TokenFromRequest(r))
	if err != nil {
		utils.Warn("Rejected gateway connection", map[string]any{"error": err.Error()})
		http.Error(w, biddingerrors.ErrUnauthenticated.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Warn("Websocket upgrade failed", map[string]any{"error": err.Error()})
		return
	}

	c := newClient(conn, principal.ID, s.cfg.SendBuffer)
	s.hub.register(c)
	utils.Debug("Gateway connection opened", map[string]any{"bidderID": c.bidderID})

	go c.writePump(s.cfg.PingPeriod, s.cfg.WriteTimeout)
	s.readPump(auth.WithPrincipal(r.Context(), principal), c)
}

func (s *Server) readPump(ctx context.Context, c *Client) {
	defer func() {
		s.hub.unregister(c)
		_ = c.conn.Close()
		utils.Debug("Gateway connection closed", map[string]any{"bidderID": c.bidderID})
	}()

	pongWait := s.cfg.PingPeriod * 10 / 9
	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Debug("Gateway read failed", map[string]any{"bidderID": c.bidderID, "error": err.Error()})
			}
			return
		}

		var msg envelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendError(c, CodeBadRequest, "malformed message", "")
			continue
		}
		s.dispatch(ctx, c, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, c *Client, msg envelope) {
	switch msg.Event {
	case events.JoinAuctionRoom:
		var req roomRequest
		if err := decodeData(msg.Data, &req); err != nil || req.AuctionID == "" {
			s.sendError(c, CodeBadRequest, "auction_id is required", "")
			return
		}
		s.handleJoin(ctx, c, req.AuctionID)
	case events.LeaveAuctionRoom:
		var req roomRequest
		if err := decodeData(msg.Data, &req); err != nil || req.AuctionID == "" {
			s.sendError(c, CodeBadRequest, "auction_id is required", "")
			return
		}
		s.hub.leave(c, req.AuctionID)
	case events.SubmitBid:
		var req submitBidRequest
		if err := decodeData(msg.Data, &req); err != nil || req.AuctionID == "" {
			s.sendError(c, CodeBadRequest, "auction_id and amount are required", "")
			return
		}
		s.handleSubmitBid(ctx, c, req)
	default:
		s.sendError(c, CodeUnknownEvent, fmt.Sprintf("unknown event %q", msg.Event), "")
	}
}

// handleJoin subscribes first so no update between the snapshot read and the
// subscription is missed. An unknown auction keeps the subscription.
func (s *Server) handleJoin(ctx context.Context, c *Client, auctionID string) {
	s.hub.join(c, auctionID)

	auction, err := s.engine.GetAuction(ctx, auctionID)
	if err != nil {
		code, message := errorCode(err)
		s.sendError(c, code, message, auctionID)
		return
	}
	s.hub.send(c, events.AuctionSnapshot, auction)
}

func (s *Server) handleSubmitBid(ctx context.Context, c *Client, req submitBidRequest) {
	if req.BidderID != "" && req.BidderID != c.bidderID {
		s.sendError(c, CodeForbidden, "bidder_id does not match the connection", req.AuctionID)
		return
	}

	if _, _, err := s.engine.PlaceBid(ctx, req.AuctionID, c.bidderID, req.Amount); err != nil {
		code, message := errorCode(err)
		utils.Info("Bid rejected", map[string]any{
			"auctionID": req.AuctionID,
			"bidderID":  c.bidderID,
			"code":      code,
			"error":     err.Error(),
		})
		s.sendError(c, code, message, req.AuctionID)
	}
}

func (s *Server) sendError(c *Client, code, message, auctionID string) {
	s.hub.send(c, events.Error, events.ErrorPayload{Code: code, Message: message, AuctionID: auctionID})
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data")
	}
	return json.Unmarshal(data, v)
}
