package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
)

// ErrNoPendingOrders is returned when a procurement run finds nothing to
// summarize. No session row is created in that case.
var ErrNoPendingOrders = errors.New("no pending orders to summarize")

// SummarizePendingOrders collects every pending order across all shops and
// flips it to summarized under a new session ID, all inside one transaction.
// The row locks taken by FOR UPDATE serialize concurrent procurement runs:
// a dashboard read racing the commit sees either the full pre- or full
// post-transition state, never a partial batch.
func (s *Store) SummarizePendingOrders(ctx context.Context, now time.Time) (*models.ProcurementSession, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var refs []models.OrderRef
	err = tx.SelectContext(ctx, &refs, `
		SELECT shop_id, order_id FROM orders
		WHERE status = $1
		ORDER BY shop_id, order_id
		FOR UPDATE`, models.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to collect pending orders: %w", err)
	}
	if len(refs) == 0 {
		return nil, ErrNoPendingOrders
	}

	// Bucket the day in UTC explicitly: the session ID is labeled with the
	// UTC date, and a bare ::date cast would use the server's TimeZone,
	// restarting the sequence mid-UTC-day on non-UTC servers.
	var daySeq int
	err = tx.GetContext(ctx, &daySeq, `
		SELECT COUNT(*) FROM procurement_sessions
		WHERE (processed_at AT TIME ZONE 'UTC')::date = ($1 AT TIME ZONE 'UTC')::date`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	sessionID := identity.NewSessionID(now, daySeq+1)

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET
			status = $1,
			session_id = $2,
			updated_at = NOW()
		WHERE status = $3`,
		models.OrderStatusSummarized, sessionID, models.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to transition orders: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && int(n) != len(refs) {
		return nil, fmt.Errorf("summarized %d orders, expected %d", n, len(refs))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO procurement_sessions (session_id, orders_processed, status, processed_at)
		VALUES ($1, $2, $3, $4)`,
		sessionID, len(refs), "completed", now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	for _, ref := range refs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO procurement_session_orders (session_id, shop_id, order_id)
			VALUES ($1, $2, $3)`, sessionID, ref.ShopID, ref.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert session order ref: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}

	return &models.ProcurementSession{
		SessionID:       sessionID,
		OrdersProcessed: len(refs),
		Status:          "completed",
		ProcessedAt:     now.UTC(),
		OrderRefs:       refs,
	}, nil
}

// ListProcurementSessions retrieves the most recent sessions, newest first
func (s *Store) ListProcurementSessions(ctx context.Context, limit int) ([]models.ProcurementSession, error) {
	var sessions []models.ProcurementSession
	err := s.db.SelectContext(ctx, &sessions, `
		SELECT session_id, orders_processed, status, processed_at
		FROM procurement_sessions
		ORDER BY processed_at DESC
		LIMIT $1`, limit)
	return sessions, err
}
