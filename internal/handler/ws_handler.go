package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/survey-backend/internal/analytics"
	"github.com/stemsi/survey-backend/internal/metrics"
	"github.com/stemsi/survey-backend/internal/middleware"
	"github.com/stemsi/survey-backend/internal/response"
	"github.com/stemsi/survey-backend/internal/service"
	ws "github.com/stemsi/survey-backend/internal/websocket"
)

// statsTimeout bounds one snapshot read so a slow store cannot stall the stream.
const statsTimeout = 5 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams live analytics to admins.
type WSHandler struct {
	analyticsService *service.AnalyticsService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(analyticsService *service.AnalyticsService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		analyticsService: analyticsService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// AnalyticsStream godoc
// WS /ws/v1/admin/analytics/stream?token=...&source=embedded
// Pushes statistics on connect and again after every submission.
func (h *WSHandler) AnalyticsStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	source, err := analytics.ParseSource(c.Query("source"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidSource)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	wsLog := h.log.With().Str("session_id", claims.ID).Logger()
	wsLog.Info().Msg("Admin attached to analytics stream")

	var notifications <-chan *redis.Message
	if pubsub := h.analyticsService.Subscribe(ctx); pubsub != nil {
		defer pubsub.Close()
		notifications = pubsub.Channel()
	}

	requests := make(chan ws.RequestEnvelope)
	go h.readLoop(ctx, cancel, conn, wsLog, requests)

	if err := h.pushStatistics(ctx, conn, source); err != nil {
		wsLog.Warn().Err(err).Msg("Initial push failed")
		return
	}

	pingTicker := time.NewTicker(ws.PingPeriod)
	defer pingTicker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			wsLog.Info().Msg("Admin detached from analytics stream")
			return

		case <-notifications:
			err = h.pushStatistics(ctx, conn, source)

		case req := <-requests:
			switch req.Action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionSetSource:
				next, perr := analytics.ParseSource(req.Source)
				if perr != nil {
					err = ws.WriteError(conn, "source must be embedded or flattened")
					break
				}
				source = next
				err = h.pushStatistics(ctx, conn, source)
			default:
				wsLog.Warn().Str("action", string(req.Action)).Msg("Unknown action")
				err = ws.WriteError(conn, "unknown action: "+string(req.Action))
			}

		case <-pingTicker.C:
			err = ws.WritePing(conn)
		}

		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed, closing stream")
			return
		}
	}
}

// readLoop forwards client messages until the connection closes. It never
// writes, so the stream loop stays the only writer.
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, wsLog zerolog.Logger, out chan<- ws.RequestEnvelope) {
	defer cancel()
	ws.KeepAlive(conn)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) pushStatistics(ctx context.Context, conn *websocket.Conn, source analytics.SourceKind) error {
	fetchCtx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	stats, err := h.analyticsService.Statistics(fetchCtx, source)
	if err != nil {
		h.log.Error().Err(err).Msg("Compute statistics failed")
		return ws.WriteError(conn, "statistics unavailable")
	}
	return ws.WriteTyped(conn, ws.StatisticsResponse{Event: ws.EventStatistics, Statistics: stats})
}
