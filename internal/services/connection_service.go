// Package services – ConnectionService
//
// This file implements the connection lifecycle state machine: how two
// accounts become connected, how a connection is dissolved, and how removed
// connections may be reinstated through a request/accept/reject protocol
// with a hard reconnection limit.
//
// Every mutating operation runs its precondition checks and writes inside a
// single GORM transaction, so a pair's state either advances atomically or
// not at all. The two user rows are always read in canonical (low, high) id
// order, and a partial unique index on the pair key backs the "at most one
// active row per pair" invariant at the storage level, so a racing
// double-create resolves to exactly one winner.
//
// Service-level errors (ErrAlreadyConnected, ErrReconnectionLimit, ...) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/nkoutro/go-connect-backend/internal/domain"
	"github.com/nkoutro/go-connect-backend/internal/repo"
)

// ConnectionService implements the use-cases around the connection
// relationship between two accounts.
type ConnectionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewConnectionService constructs a ConnectionService.
func NewConnectionService(db *gorm.DB) *ConnectionService {
	return &ConnectionService{DB: db}
}

// ConnectResult reports the outcome of a successful Connect call: either a
// brand-new paid connection or a reconnection request on a removed one.
type ConnectResult struct {
	Connection *domain.Connection
	// ReconnectionRequested is true when the call transitioned a removed
	// pair to the requested state instead of creating a new connection.
	ReconnectionRequested bool
}

// Connect attempts to connect actorID to targetID, optionally attaching a
// message.
//
// Precondition checks run in order, first failing one wins:
//  1. active row exists            -> ErrAlreadyConnected
//  2. removed row past the limit   -> ErrReconnectionLimit (permanent)
//  3. request already on record    -> ErrReconnectionRequested
//  4. removed row, none of above   -> transition to requested state
//  5. no prior row                 -> create, debiting the target's price
//     from the actor and incrementing both connections counters in the
//     same transaction (all-or-nothing)
//
// An actor who cannot afford the price receives InsufficientConnectsError
// carrying the required amount; nothing is mutated in that case.
func (s *ConnectionService) Connect(ctx context.Context, actorID, targetID, message string) (*ConnectResult, error) {
	if actorID == targetID {
		return nil, ErrSelfConnection
	}
	var msg *string
	if m := strings.TrimSpace(message); m != "" {
		msg = &m
	}

	var res ConnectResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, target, err := lockPairUsers(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}

		// 1) Already connected.
		if _, err := repo.GetActivePair(ctx, tx, actorID, targetID); err == nil {
			return ErrAlreadyConnected
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}

		// 2-4) Removed history: reconnection path, no balance or counter
		// changes.
		prior, err := repo.GetLatestRemovedPair(ctx, tx, actorID, targetID)
		switch {
		case err == nil:
			switch prior.State() {
			case domain.StateLimitReached:
				return ErrReconnectionLimit
			case domain.StateRequested, domain.StateRejected:
				return ErrReconnectionRequested
			}
			prior.ReconnectionRequested = true
			prior.ReconnectionRequestedBy = &actorID
			prior.Message = msg
			if err := repo.UpdateConnection(ctx, tx, prior); err != nil {
				return err
			}
			res = ConnectResult{Connection: prior, ReconnectionRequested: true}
			return nil
		case !errors.Is(err, repo.ErrNotFound):
			return err
		}

		// 5) First-time creation.
		price := target.ConnectsNeededForConnection
		if price > 0 && actor.Connects < price {
			return &InsufficientConnectsError{Required: price}
		}
		conn, err := repo.CreateConnection(ctx, tx, actorID, targetID, price, msg)
		if err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				// A racing call won the partial unique index.
				return ErrAlreadyConnected
			}
			return err
		}
		if err := repo.DebitConnects(ctx, tx, actorID, price); err != nil {
			return err
		}
		if err := repo.IncrementConnectionCount(ctx, tx, actorID); err != nil {
			return err
		}
		if err := repo.IncrementConnectionCount(ctx, tx, targetID); err != nil {
			return err
		}
		res = ConnectResult{Connection: conn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Disconnect dissolves the pair's active connection. The row is kept with
// Removed set; connections counters are not decremented, so historical
// totals survive removal. The row remains eligible for future reconnection.
func (s *ConnectionService) Disconnect(ctx context.Context, actorID, targetID string) (*domain.Connection, error) {
	if actorID == targetID {
		return nil, ErrSelfConnection
	}
	var out *domain.Connection
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUserExists(ctx, tx, targetID); err != nil {
			return err
		}
		conn, err := repo.GetActivePair(ctx, tx, actorID, targetID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNotConnected
			}
			return err
		}
		conn.Removed = true
		if err := repo.UpdateConnection(ctx, tx, conn); err != nil {
			return err
		}
		out = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptReconnection restores a removed connection whose reconnection was
// requested by targetID (the other party). The reconnection count grows by
// one; balances and counters are untouched.
func (s *ConnectionService) AcceptReconnection(ctx context.Context, actorID, targetID string) (*domain.Connection, error) {
	if actorID == targetID {
		return nil, ErrSelfConnection
	}
	var out *domain.Connection
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUserExists(ctx, tx, targetID); err != nil {
			return err
		}
		conn, err := repo.GetPendingRequest(ctx, tx, actorID, targetID, targetID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNoAcceptableRequest
			}
			return err
		}
		conn.Removed = false
		conn.ReconnectionCount++
		conn.ReconnectionRequested = false
		conn.ReconnectionRequestedBy = nil
		if err := repo.UpdateConnection(ctx, tx, conn); err != nil {
			return err
		}
		out = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RejectReconnection denies the pending request issued by targetID. The row
// stays removed and the request stays on record as rejected, which blocks
// any further connect attempt for this pair.
func (s *ConnectionService) RejectReconnection(ctx context.Context, actorID, targetID string) (*domain.Connection, error) {
	if actorID == targetID {
		return nil, ErrSelfConnection
	}
	var out *domain.Connection
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUserExists(ctx, tx, targetID); err != nil {
			return err
		}
		conn, err := repo.GetPendingRequest(ctx, tx, actorID, targetID, targetID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNoAcceptableRequest
			}
			return err
		}
		conn.ReconnectionRejected = true
		if err := repo.UpdateConnection(ctx, tx, conn); err != nil {
			return err
		}
		out = conn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPage returns a page of userID's connection rows ordered by recency,
// plus the total count. It applies defaults for invalid page/pageSize.
func (s *ConnectionService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Connection, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountConnections(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Connection{}, 0, nil
	}
	items, err := repo.ListConnectionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// IncomingRequests returns open reconnection requests addressed to userID.
func (s *ConnectionService) IncomingRequests(ctx context.Context, userID string) ([]domain.Connection, error) {
	return repo.ListIncomingRequests(ctx, s.DB, userID)
}

// GetPair returns the most recent connection row between userID and otherID,
// or ErrUserNotFound / repo.ErrNotFound.
func (s *ConnectionService) GetPair(ctx context.Context, userID, otherID string) (*domain.Connection, error) {
	if err := ensureUserExists(ctx, s.DB, otherID); err != nil {
		return nil, err
	}
	return repo.GetPair(ctx, s.DB, userID, otherID)
}

// PairHistory returns every row ever recorded between userID and otherID,
// most recent first.
func (s *ConnectionService) PairHistory(ctx context.Context, userID, otherID string) ([]domain.Connection, error) {
	if err := ensureUserExists(ctx, s.DB, otherID); err != nil {
		return nil, err
	}
	return repo.ListPairHistory(ctx, s.DB, userID, otherID)
}

// lockPairUsers loads both user rows inside the caller's transaction, always
// reading the canonically lower id first so the access pattern stays
// deadlock-free on engines with row locks. A missing user maps to
// ErrUserNotFound.
func lockPairUsers(ctx context.Context, tx *gorm.DB, actorID, targetID string) (actor, target *domain.User, err error) {
	low, high := domain.PairKey(actorID, targetID)
	users := make(map[string]*domain.User, 2)
	for _, id := range []string{low, high} {
		u, err := repo.GetUserForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, nil, ErrUserNotFound
			}
			return nil, nil, err
		}
		users[id] = u
	}
	return users[actorID], users[targetID], nil
}

// ensureUserExists maps a missing user row to ErrUserNotFound.
func ensureUserExists(ctx context.Context, db *gorm.DB, id string) error {
	if _, err := repo.GetUser(ctx, db, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
