package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/TenantOS/backend/internal/command"
	"github.com/GriffinCanCode/TenantOS/backend/internal/events"
	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TenantOS/backend/internal/service"
	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/types"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// closeMissingUID is sent when a connection arrives without an identity.
const closeMissingUID = 4000

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler terminates websocket connections. It extracts the user id from
// the uid query parameter, ensures a session exists, and runs the whole
// message loop with that identity bound to the context, so every proxy
// call made while handling a message routes to the caller's session.
type Handler struct {
	sessions *tenant.Registry
	commands *command.Proxy
	events   *events.Proxy
	services *service.Registry
	metrics  *monitoring.Metrics
	logger   *logging.Logger

	seeded sync.Map // uid -> *sync.Once
}

// NewHandler creates a websocket handler.
func NewHandler(
	sessions *tenant.Registry,
	commands *command.Proxy,
	eventProxy *events.Proxy,
	services *service.Registry,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handler {
	return &Handler{
		sessions: sessions,
		commands: commands,
		events:   eventProxy,
		services: services,
		metrics:  metrics,
		logger:   logger,
	}
}

// client serializes writes to one connection; the event listener and the
// message loop write concurrently.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(resp types.WSResponse) error {
	data, err := sonic.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// HandleConnection handles websocket upgrade and the message loop.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	uid := c.Query("uid")
	if uid == "" {
		h.close(conn, closeMissingUID, "Missing uid parameter")
		return
	}

	_, existed := h.sessions.Get(uid)
	if _, err := h.sessions.GetOrCreate(uid); err != nil {
		h.close(conn, closeMissingUID, "Invalid uid parameter")
		return
	}
	if !existed {
		h.metrics.IncSessionsTotal()
	}

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()
	h.metrics.SetSessionsActive(h.sessions.Count())

	ctx := tenant.WithIdentity(c.Request.Context(), uid)
	h.seedCommands(ctx, uid)

	cl := &client{conn: conn}

	// Forward this user's document changes for the connection lifetime.
	sub, err := h.events.OnChange(ctx, func(ev events.Event) {
		h.metrics.RecordWSMessage("out", "document_change")
		if err := cl.send(types.WSResponse{
			Type:      "document_change",
			UID:       uid,
			Data:      ev,
			Timestamp: time.Now().UnixMilli(),
		}); err != nil {
			h.logger.Debug("document change push failed", zap.String("uid", uid), zap.Error(err))
		}
	})
	if err == nil {
		defer sub.Dispose()
	}

	cl.send(types.WSResponse{
		Type:      "system",
		UID:       uid,
		Message:   "Connected to TenantOS backend",
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", zap.String("uid", uid), zap.Error(err))
			}
			return
		}

		var req types.WSRequest
		if err := sonic.Unmarshal(raw, &req); err != nil {
			h.sendError(cl, "invalid message format")
			continue
		}
		h.metrics.RecordWSMessage("in", req.Command)

		h.dispatch(ctx, cl, req)
	}
}

func (h *Handler) dispatch(ctx context.Context, cl *client, req types.WSRequest) {
	switch req.Command {
	case "ping":
		cl.send(types.WSResponse{
			Type:      "pong",
			Timestamp: time.Now().UnixMilli(),
		})

	case "execute":
		name, _ := req.Data["name"].(string)
		if name == "" {
			h.sendError(cl, "execute requires a command name")
			return
		}
		args, _ := req.Data["args"].(map[string]interface{})

		result, err := h.commands.Execute(ctx, name, args)
		if err != nil {
			h.sendError(cl, err.Error())
			return
		}
		cl.send(types.WSResponse{
			Type:      "result",
			Command:   "execute",
			Data:      result,
			Timestamp: time.Now().UnixMilli(),
		})

	default:
		h.sendError(cl, fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// seedCommands registers the built-in commands for a user once. They are
// ordinary scoped commands: each user gets an independent set.
func (h *Handler) seedCommands(ctx context.Context, uid string) {
	onceVal, _ := h.seeded.LoadOrStore(uid, &sync.Once{})
	onceVal.(*sync.Once).Do(func() {
		seeds := map[string]command.Handler{
			"echo": func(_ context.Context, args map[string]interface{}) (interface{}, error) {
				return args, nil
			},
			"time": func(_ context.Context, _ map[string]interface{}) (interface{}, error) {
				return map[string]interface{}{"epoch_ms": time.Now().UnixMilli()}, nil
			},
			"tool": func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
				toolID, _ := args["tool"].(string)
				if toolID == "" {
					return nil, fmt.Errorf("tool argument required")
				}
				params, _ := args["params"].(map[string]interface{})
				return h.services.Execute(ctx, toolID, params)
			},
		}
		for name, handler := range seeds {
			if _, err := h.commands.Register(ctx, name, handler); err != nil {
				h.logger.Error("seed command registration failed",
					zap.String("uid", uid), zap.String("command", name), zap.Error(err))
			}
		}
	})
}

func (h *Handler) sendError(cl *client, msg string) {
	h.metrics.RecordWSMessage("out", "error")
	cl.send(types.WSResponse{
		Type:      "error",
		Message:   msg,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (h *Handler) close(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
