package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/appgrove/appgrove/pkg/analytics"
	"github.com/appgrove/appgrove/pkg/database"
	"github.com/appgrove/appgrove/pkg/logger"
)

// Postgres reads analytics populations out of the marketplace schema.
// All queries are read-only and safe to point at a replica.
type Postgres struct {
	conn func() *sql.DB
	log  logger.Logger
}

// NewPostgres creates a Postgres-backed analytics store
func NewPostgres(db *sql.DB, log logger.Logger) *Postgres {
	return &Postgres{conn: func() *sql.DB { return db }, log: log}
}

// NewPostgresWithReplicas resolves the read connection per query so reports
// follow replica health instead of pinning one connection at startup
func NewPostgresWithReplicas(c *database.ClientWithReplicas, log logger.Logger) *Postgres {
	return &Postgres{conn: c.GetReadDB, log: log}
}

// condBuilder accumulates WHERE conditions with $n placeholders
type condBuilder struct {
	conds []string
	args  []interface{}
}

func (b *condBuilder) add(expr string, arg interface{}) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, fmt.Sprintf(expr, len(b.args)))
}

func (b *condBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// scopeExists restricts rows to users who transacted with apps owned by the
// scope entity. Purchases carry the app relation directly; users and activity
// are scoped through an EXISTS probe so no duplicate rows are produced.
const scopeExists = `EXISTS (
		SELECT 1 FROM purchases sp
		JOIN apps sa ON sa.id = sp.app_id
		WHERE sp.user_id = %s AND sa.owner_id = $%%d
	)`

func populationQuery(f analytics.Filter) (string, []interface{}) {
	b := &condBuilder{}
	if f.ScopeID != "" {
		b.add(fmt.Sprintf(scopeExists, "u.id"), f.ScopeID)
	}
	if !f.From.IsZero() {
		b.add("u.created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		b.add("u.created_at <= $%d", f.To)
	}
	query := "SELECT u.id, u.role, u.created_at FROM users u" + b.where() + " ORDER BY u.created_at"
	return query, b.args
}

func purchasesQuery(f analytics.Filter) (string, []interface{}) {
	b := &condBuilder{}
	join := ""
	if f.ScopeID != "" {
		join = " JOIN apps a ON a.id = p.app_id"
		b.add("a.owner_id = $%d", f.ScopeID)
	}
	if !f.From.IsZero() {
		b.add("p.created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		b.add("p.created_at <= $%d", f.To)
	}
	query := "SELECT p.id, p.user_id, p.app_id, p.amount, p.status, p.created_at FROM purchases p" +
		join + b.where() + " ORDER BY p.created_at"
	return query, b.args
}

func activityQuery(f analytics.Filter) (string, []interface{}) {
	b := &condBuilder{}
	if f.ScopeID != "" {
		b.add(fmt.Sprintf(scopeExists, "al.user_id"), f.ScopeID)
	}
	if !f.From.IsZero() {
		b.add("al.created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		b.add("al.created_at <= $%d", f.To)
	}
	query := "SELECT al.user_id, al.action, al.created_at FROM activity_logs al" +
		b.where() + " ORDER BY al.created_at"
	return query, b.args
}

// FetchPopulation returns user registration rows matching the filter
func (s *Postgres) FetchPopulation(ctx context.Context, f analytics.Filter) ([]analytics.UserRecord, error) {
	query, args := populationQuery(f)

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying population: %w", err)
	}
	defer rows.Close()

	var users []analytics.UserRecord
	for rows.Next() {
		var u analytics.UserRecord
		if err := rows.Scan(&u.ID, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	s.log.Debug("fetched population", "count", len(users), "scope_id", f.ScopeID)
	return users, nil
}

// FetchPurchases returns purchase ledger rows matching the filter
func (s *Postgres) FetchPurchases(ctx context.Context, f analytics.Filter) ([]analytics.PurchaseRecord, error) {
	query, args := purchasesQuery(f)

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying purchases: %w", err)
	}
	defer rows.Close()

	var purchases []analytics.PurchaseRecord
	for rows.Next() {
		var p analytics.PurchaseRecord
		if err := rows.Scan(&p.ID, &p.UserID, &p.AppID, &p.Amount, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning purchase row: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating purchase rows: %w", err)
	}

	s.log.Debug("fetched purchases", "count", len(purchases), "scope_id", f.ScopeID)
	return purchases, nil
}

// FetchActivity returns activity log rows matching the filter
func (s *Postgres) FetchActivity(ctx context.Context, f analytics.Filter) ([]analytics.ActivityRecord, error) {
	query, args := activityQuery(f)

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var activity []analytics.ActivityRecord
	for rows.Next() {
		var a analytics.ActivityRecord
		if err := rows.Scan(&a.UserID, &a.Action, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		activity = append(activity, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}

	s.log.Debug("fetched activity", "count", len(activity), "scope_id", f.ScopeID)
	return activity, nil
}
