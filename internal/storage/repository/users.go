package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/osoriolabs/lawdesk/internal/models"
)

// RegisterUser stores a new tenant and returns its uid.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, username, password_hash, role, subscription_status,
			      plan, trial_expires_at, trial_limit)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.SubscriptionStatus,
		user.Plan, user.TrialExpiresAt, user.TrialLimit).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByUsername returns a tenant by username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, subscription_status,
			      COALESCE(plan, ''), COALESCE(stripe_customer_id, ''),
			      COALESCE(stripe_subscription_id, ''), trial_expires_at, trial_limit, created_at
			  FROM users
			  WHERE username = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, username), op)
}

// GetUser returns a tenant by uid.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, subscription_status,
			      COALESCE(plan, ''), COALESCE(stripe_customer_id, ''),
			      COALESCE(stripe_subscription_id, ''), trial_expires_at, trial_limit, created_at
			  FROM users
			  WHERE uid = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, userUID), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var trialExpiresAt sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.SubscriptionStatus, &u.Plan, &u.StripeCustomerID, &u.StripeSubscriptionID,
		&trialExpiresAt, &u.TrialLimit, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if trialExpiresAt.Valid {
		u.TrialExpiresAt = &trialExpiresAt.Time
	}
	return u, nil
}

// GetSubscriptionInfo returns the subscription snapshot of a tenant.
func (s *Storage) GetSubscriptionInfo(ctx context.Context, userUID string) (*models.SubscriptionInfo, error) {
	const op = "storage.GetSubscriptionInfo"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT subscription_status, COALESCE(plan, ''), COALESCE(stripe_customer_id, ''),
			      COALESCE(stripe_subscription_id, ''), trial_expires_at, trial_limit
			  FROM users
			  WHERE uid = $1`
	info := &models.SubscriptionInfo{}
	var trialExpiresAt sql.NullTime
	if err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&info.Status, &info.Plan,
		&info.StripeCustomerID, &info.StripeSubscriptionID, &trialExpiresAt, &info.TrialLimit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if trialExpiresAt.Valid {
		info.TrialExpiresAt = &trialExpiresAt.Time
	}
	return info, nil
}

// UpdateUserSubscriptionStatus invokes the update_user_subscription_status
// stored function, the single write path the payment webhook uses. Setting
// the status to a fixed value is idempotent, which is what makes duplicate
// webhook deliveries safe.
func (s *Storage) UpdateUserSubscriptionStatus(ctx context.Context, userUID, status, customerID, subscriptionID string) error {
	const op = "storage.UpdateUserSubscriptionStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT update_user_subscription_status($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query, userUID, status, customerID, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindDeadlinesDueTomorrow returns every open deadline due tomorrow joined
// with the owning tenant's contact data, for the reminder scheduler.
func (s *Storage) FindDeadlinesDueTomorrow(ctx context.Context) ([]*models.DeadlineReminder, error) {
	const op = "storage.FindDeadlinesDueTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT
		          u.email,
			      u.username,
			      d.title,
			      COALESCE(m.title, ''),
			      d.due_date
			  FROM deadlines d
		      JOIN users u ON d.user_uid = u.uid
		      LEFT JOIN matters m ON d.matter_id = m.id
		      WHERE d.done = false
		        AND d.due_date::date = CURRENT_DATE + INTERVAL '1 day';`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DeadlineReminder
	for rows.Next() {
		var r models.DeadlineReminder
		if err = rows.Scan(&r.Email, &r.Username, &r.Title, &r.MatterTitle, &r.DueDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
