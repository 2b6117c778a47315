// Connection HTTP handlers.
//
// This file exposes REST endpoints for the connection lifecycle:
//   - POST /users/{id}/connect               (connect or request reconnection)
//   - POST /users/{id}/disconnect            (dissolve an active connection)
//   - POST /users/{id}/accept_reconnection   (accept the other party's request)
//   - POST /users/{id}/reject_reconnection   (reject the other party's request)
//   - GET  /connections                      (list, paginated, ETag support)
//   - GET  /connections/requests             (pending incoming requests)
//   - GET  /users/{id}/connection            (pair state and history)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nkoutro/go-connect-backend/internal/domain"
	"github.com/nkoutro/go-connect-backend/internal/http/middleware"
	"github.com/nkoutro/go-connect-backend/internal/repo"
	"github.com/nkoutro/go-connect-backend/internal/services"
	"github.com/nkoutro/go-connect-backend/internal/utils"
)

// idempotencyTTL bounds how long a stored Connect result can be replayed.
const idempotencyTTL = 24 * time.Hour

//
// Service contracts (context-aware)
//

// ConnectionService defines the connection lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConnectionService interface {
	// Connect establishes a first-time connection or, for a removed pair,
	// files a reconnection request.
	Connect(ctx context.Context, actorID, targetID, message string) (*services.ConnectResult, error)
	// Disconnect dissolves the active connection between actorID and targetID.
	Disconnect(ctx context.Context, actorID, targetID string) (*domain.Connection, error)
	// AcceptReconnection accepts a pending request filed by targetID.
	AcceptReconnection(ctx context.Context, actorID, targetID string) (*domain.Connection, error)
	// RejectReconnection rejects a pending request filed by targetID.
	RejectReconnection(ctx context.Context, actorID, targetID string) (*domain.Connection, error)
	// ListPage returns a page of the user's connection rows and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Connection, int64, error)
	// IncomingRequests returns open reconnection requests addressed to userID.
	IncomingRequests(ctx context.Context, userID string) ([]domain.Connection, error)
	// GetPair returns the most recent row between userID and otherID.
	GetPair(ctx context.Context, userID, otherID string) (*domain.Connection, error)
	// PairHistory returns every row ever recorded for the pair, newest first.
	PairHistory(ctx context.Context, userID, otherID string) ([]domain.Connection, error)
}

// AccountService defines the account and profile operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// Register creates an account and emails a verification code.
	Register(ctx context.Context, username, name, email, password string) (*domain.User, error)
	// Login verifies credentials and returns a signed access token.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	// VerifyEmail consumes a verification code for the given address.
	VerifyEmail(ctx context.Context, email, code string) error
	// ResendOTP issues a fresh verification code.
	ResendOTP(ctx context.Context, email string) error
	// SendResetOTP issues a password-reset code.
	SendResetOTP(ctx context.Context, email string) error
	// VerifyResetOTP consumes a reset code and returns a short-lived token.
	VerifyResetOTP(ctx context.Context, email, code string) (string, error)
	// ResetPassword replaces the authenticated user's password.
	ResetPassword(ctx context.Context, userID, password1, password2 string) error
	// Me returns the authenticated user's row.
	Me(ctx context.Context, userID string) (*domain.User, error)
	// EditProfile applies a partial profile update.
	EditProfile(ctx context.Context, userID string, patch services.ProfilePatch) (*domain.User, error)
	// GetProfile returns another user's row by id.
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	// GetProfileByUsername returns another user's row by username.
	GetProfileByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListPage returns a ranked page of users and the total count.
	ListPage(ctx context.Context, viewerID, search string, page, pageSize int) ([]domain.User, int64, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for accounts, profiles, and connections.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	connSvc    ConnectionService
	accountSvc AccountService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(connSvc ConnectionService, accountSvc AccountService) *Handlers {
	return &Handlers{connSvc: connSvc, accountSvc: accountSvc}
}

// userID extracts the authenticated user id from Gin context (set by the
// auth middleware). If absent, it falls back to "X-User-ID" header (tests
// use it), and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// targetID validates the :id path parameter as a UUID. It writes a 400
// response and returns ok=false when the parameter is malformed.
func targetID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a UUID")
		return "", false
	}
	return id, true
}

//
// DTOs
//

// ConnectRequest is the optional JSON payload for a connect call.
type ConnectRequest struct {
	// Message optionally accompanies a reconnection request.
	Message string `json:"message,omitempty" binding:"max=500" example:"Let's reconnect!"`
}

// ConnectResponse wraps the resulting connection row and tells the caller
// whether the call created a connection or filed a reconnection request.
type ConnectResponse struct {
	Connection            *domain.Connection `json:"connection"`
	ReconnectionRequested bool               `json:"reconnection_requested"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListConnectionsResponse wraps a page of connections and pagination
// information.
type ListConnectionsResponse struct {
	Connections []domain.Connection `json:"connections"`
	Pagination  Pagination          `json:"pagination"`
}

// PairConnectionResponse reports the relationship between the current user
// and another account: the derived state, the most recent row (if any), and
// the full history of rows for the pair.
type PairConnectionResponse struct {
	State      domain.ConnectionState `json:"state"`
	Connection *domain.Connection     `json:"connection,omitempty"`
	History    []domain.Connection    `json:"history"`
}

//
// Helpers
//

// connDB exposes the concrete service's GORM handle for transport-level
// storage reads (idempotency records, ETag stats). Nil when the handler is
// bound to a different ConnectionService implementation.
func (h *Handlers) connDB() *gorm.DB {
	if svc, okSvc := h.connSvc.(*services.ConnectionService); okSvc {
		return svc.DB
	}
	return nil
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failConnection maps connection service errors onto the HTTP error
// taxonomy shared by the four lifecycle endpoints.
func failConnection(c *gin.Context, err error) {
	if ice, okIns := services.AsInsufficientConnects(err); okIns {
		fail(c, http.StatusPaymentRequired, ErrCodePaymentRequired,
			fmt.Sprintf("not enough connects: %d required", ice.Required))
		return
	}
	switch err {
	case services.ErrSelfConnection:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot connect to yourself")
	case services.ErrUserNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	case services.ErrAlreadyConnected:
		fail(c, http.StatusConflict, ErrCodeConflict, "already connected")
	case services.ErrNotConnected:
		fail(c, http.StatusConflict, ErrCodeConflict, "not connected")
	case services.ErrReconnectionRequested:
		fail(c, http.StatusConflict, ErrCodeConflict, "reconnection already requested")
	case services.ErrReconnectionLimit:
		fail(c, http.StatusConflict, ErrCodeConflict, "reconnection limit reached")
	case services.ErrNoAcceptableRequest:
		fail(c, http.StatusConflict, ErrCodeConflict, "no reconnection request to act on")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeConnectFailed, err.Error())
	}
}

//
// Handlers
//

// Connect godoc
// @ID          connect
// @Summary     Connect with a user
// @Description Establishes a first-time connection (debiting the target's price) or, for a previously removed pair, files a reconnection request.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Connections
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id    path  string  true   "Target user ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ConnectRequest  false  "Optional reconnection message"
//
// @Success     201  {object} handlers.ConnectResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     402  {object} handlers.ErrorResponse "Insufficient connects"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     409  {object} handlers.ErrorResponse "Lifecycle conflict"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/connect [post]
func (h *Handlers) Connect(c *gin.Context) {
	ctx := c.Request.Context()
	target, okID := targetID(c)
	if !okID {
		return
	}

	var req ConnectRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}

	actor := userID(c)

	// Idempotency (replay path): re-serve the stored result for this key.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	db := h.connDB()
	if idemKey != "" && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, actor, target, idemKey, time.Now().UTC()); err == nil && rec != nil {
			if prev, err2 := repo.GetConnection(ctx, db, rec.ConnectionID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, ConnectResponse{
					Connection:            prev,
					ReconnectionRequested: prev.State() == domain.StateRequested,
				})
				return
			}
		}
	}

	res, err := h.connSvc.Connect(ctx, actor, target, strings.TrimSpace(req.Message))
	if err != nil {
		failConnection(c, err)
		return
	}

	// Idempotency (store path): best effort, the response is already decided.
	if idemKey != "" && db != nil {
		_, _ = repo.CreateIdempotency(ctx, db, actor, target, idemKey,
			res.Connection.ID, http.StatusCreated, idempotencyTTL)
	}

	ok(c, http.StatusCreated, ConnectResponse{
		Connection:            res.Connection,
		ReconnectionRequested: res.ReconnectionRequested,
	})
}

// Disconnect godoc
// @ID          disconnect
// @Summary     Disconnect from a user
// @Description Dissolves the active connection with the target. Connection counters and spent connects are not refunded.
// @Tags        Connections
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Target user ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Connection
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     409  {object} handlers.ErrorResponse "Not connected"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/disconnect [post]
func (h *Handlers) Disconnect(c *gin.Context) {
	target, okID := targetID(c)
	if !okID {
		return
	}
	conn, err := h.connSvc.Disconnect(c.Request.Context(), userID(c), target)
	if err != nil {
		failConnection(c, err)
		return
	}
	ok(c, http.StatusOK, conn)
}

// AcceptReconnection godoc
// @ID          acceptReconnection
// @Summary     Accept a reconnection request
// @Description Accepts a pending reconnection request filed by the target user, restoring the connection.
// @Tags        Connections
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Requesting user ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Connection
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     409  {object} handlers.ErrorResponse "No acceptable request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/accept_reconnection [post]
func (h *Handlers) AcceptReconnection(c *gin.Context) {
	target, okID := targetID(c)
	if !okID {
		return
	}
	conn, err := h.connSvc.AcceptReconnection(c.Request.Context(), userID(c), target)
	if err != nil {
		failConnection(c, err)
		return
	}
	ok(c, http.StatusOK, conn)
}

// RejectReconnection godoc
// @ID          rejectReconnection
// @Summary     Reject a reconnection request
// @Description Rejects a pending reconnection request filed by the target user. The pair stays disconnected.
// @Tags        Connections
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Requesting user ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Connection
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     409  {object} handlers.ErrorResponse "No acceptable request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/reject_reconnection [post]
func (h *Handlers) RejectReconnection(c *gin.Context) {
	target, okID := targetID(c)
	if !okID {
		return
	}
	conn, err := h.connSvc.RejectReconnection(c.Request.Context(), userID(c), target)
	if err != nil {
		failConnection(c, err)
		return
	}
	ok(c, http.StatusOK, conn)
}

// ListConnections godoc
// @ID          listConnections
// @Summary     List connections (paginated)
// @Description Returns a page of the user's connection rows, most recently updated first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Connections
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConnectionsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /connections [get]
func (h *Handlers) ListConnections(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	db := h.connDB()
	if db != nil {
		count, maxTS, err := repo.ConnectionsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"connections:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.connSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListConnectionsResponse{
		Connections: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}

// ListReconnectionRequests godoc
// @ID          listReconnectionRequests
// @Summary     List pending reconnection requests
// @Description Returns reconnection requests addressed to the current user that have not been accepted or rejected.
// @Tags        Connections
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {array}  domain.Connection
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /connections/requests [get]
func (h *Handlers) ListReconnectionRequests(c *gin.Context) {
	items, err := h.connSvc.IncomingRequests(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// GetConnection godoc
// @ID          getConnection
// @Summary     Get the relationship with a user
// @Description Returns the derived connection state, the most recent row, and the full pair history with the target user.
// @Tags        Connections
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Target user ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.PairConnectionResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/connection [get]
func (h *Handlers) GetConnection(c *gin.Context) {
	target, okID := targetID(c)
	if !okID {
		return
	}
	ctx := c.Request.Context()
	uid := userID(c)

	latest, err := h.connSvc.GetPair(ctx, uid, target)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		return
	case errors.Is(err, repo.ErrNotFound):
		latest = nil // no row yet; reported as state "none"
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	history, err := h.connSvc.PairHistory(ctx, uid, target)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if history == nil {
		history = []domain.Connection{}
	}

	ok(c, http.StatusOK, PairConnectionResponse{
		State:      latest.State(),
		Connection: latest,
		History:    history,
	})
}
