package repository

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/osoriolabs/lawdesk/internal/models"
)

const testSchema = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE users (
    uid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user',
    subscription_status TEXT NOT NULL DEFAULT 'trial',
    plan TEXT,
    stripe_customer_id TEXT,
    stripe_subscription_id TEXT,
    trial_expires_at TIMESTAMPTZ,
    trial_limit INTEGER NOT NULL DEFAULT 10,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE clients (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_uid UUID NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
    name TEXT NOT NULL,
    email TEXT,
    phone TEXT,
    address TEXT,
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE matters (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_uid UUID NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
    title TEXT NOT NULL,
    client_id UUID REFERENCES clients(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'open',
    court TEXT,
    docket_number TEXT,
    opened_at DATE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_uid UUID NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
    matter_id UUID REFERENCES matters(id) ON DELETE SET NULL,
    name TEXT NOT NULL,
    storage_key TEXT,
    content_type TEXT,
    size_bytes BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE OR REPLACE FUNCTION update_user_subscription_status(
    p_user_uid UUID,
    p_status TEXT,
    p_customer_id TEXT,
    p_subscription_id TEXT
) RETURNS VOID AS $$
BEGIN
    UPDATE users
    SET subscription_status = p_status,
        stripe_customer_id = COALESCE(NULLIF(p_customer_id, ''), stripe_customer_id),
        stripe_subscription_id = COALESCE(NULLIF(p_subscription_id, ''), stripe_subscription_id),
        updated_at = now()
    WHERE uid = p_user_uid;
END;
$$ LANGUAGE plpgsql;
`

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("lawdesk_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort(nat.Port("5432/tcp")),
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { storage.DB.Close() })

	_, err = storage.DB.ExecContext(ctx, testSchema)
	require.NoError(t, err)

	return storage
}

func registerTestUser(t *testing.T, storage *Storage, username string) models.Principal {
	t.Helper()

	uid, err := storage.RegisterUser(context.Background(), models.User{
		Email:              username + "@example.test",
		Username:           username,
		PasswordHash:       "x",
		Role:               "user",
		SubscriptionStatus: models.SubscriptionStatusTrial,
	})
	require.NoError(t, err)
	return models.Principal{UID: uid, Username: username, Role: "user"}
}

func TestOwnedCRUD_TenantIsolation(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	alice := registerTestUser(t, storage, "alice")
	bob := registerTestUser(t, storage, "bob")

	inserted, err := storage.InsertOwned(ctx, alice, "clients", []map[string]any{
		{"name": "Acme Corp", "email": "legal@acme.test"},
		{"name": "Globex", "email": "law@globex.test"},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	for _, row := range inserted {
		assert.Equal(t, alice.UID, row["user_uid"])
	}

	t.Run("select returns only own rows", func(t *testing.T) {
		rows, err := storage.SelectOwned(ctx, bob, "clients", nil, nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)

		rows, err = storage.SelectOwned(ctx, alice, "clients", nil, nil, nil)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("caller supplied user_uid is overridden", func(t *testing.T) {
		rows, err := storage.InsertOwned(ctx, bob, "clients", []map[string]any{
			{"name": "Initech", "user_uid": alice.UID},
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, bob.UID, rows[0]["user_uid"])
	})

	clientID := stringValue(inserted[0]["id"])

	t.Run("select one by id", func(t *testing.T) {
		row, err := storage.SelectOneOwned(ctx, alice, "clients", "id", clientID, nil)
		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", row["name"])

		_, err = storage.SelectOneOwned(ctx, bob, "clients", "id", clientID, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update crosses no tenant boundary", func(t *testing.T) {
		rows, err := storage.UpdateOwned(ctx, bob, "clients", "id", clientID, map[string]any{"name": "Hijacked"})
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = storage.UpdateOwned(ctx, alice, "clients", "id", clientID, map[string]any{"name": "Acme Corporation"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Acme Corporation", rows[0]["name"])
	})

	t.Run("delete crosses no tenant boundary", func(t *testing.T) {
		rows, err := storage.DeleteOwned(ctx, bob, "clients", "id", clientID)
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = storage.DeleteOwned(ctx, alice, "clients", "id", clientID)
		require.NoError(t, err)
		require.Len(t, rows, 1)

		_, err = storage.SelectOneOwned(ctx, alice, "clients", "id", clientID, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSelectOwned_RelationOrder(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	alice := registerTestUser(t, storage, "alice")

	matters, err := storage.InsertOwned(ctx, alice, "matters", []map[string]any{
		{"title": "Smith v. Jones"},
		{"title": "Acme Merger"},
		{"title": "Zeta Estate"},
	})
	require.NoError(t, err)
	require.Len(t, matters, 3)

	docs := make([]map[string]any, 0, len(matters))
	for i, m := range matters {
		docs = append(docs, map[string]any{
			"matter_id": stringValue(m["id"]),
			"name":      "exhibit-" + string(rune('a'+i)) + ".pdf",
		})
	}
	_, err = storage.InsertOwned(ctx, alice, "documents", docs)
	require.NoError(t, err)

	t.Run("ascending by joined column", func(t *testing.T) {
		rows, err := storage.SelectOwned(ctx, alice, "documents", nil, nil,
			&Order{Column: "matter_title"})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Acme Merger", rows[0]["matter_title"])
		assert.Equal(t, "Smith v. Jones", rows[1]["matter_title"])
		assert.Equal(t, "Zeta Estate", rows[2]["matter_title"])
	})

	t.Run("descending by joined column", func(t *testing.T) {
		rows, err := storage.SelectOwned(ctx, alice, "documents", nil, nil,
			&Order{Column: "matter_title", Desc: true})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Zeta Estate", rows[0]["matter_title"])
		assert.Equal(t, "Acme Merger", rows[2]["matter_title"])
	})

	t.Run("filters combine with order", func(t *testing.T) {
		rows, err := storage.SelectOwned(ctx, alice, "documents",
			map[string]any{"name": "exhibit-a.pdf"}, []string{"id", "name", "matter_title"},
			&Order{Column: "matter_title"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Smith v. Jones", rows[0]["matter_title"])
	})
}

func TestUpdateUserSubscriptionStatus(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	alice := registerTestUser(t, storage, "alice")

	err := storage.UpdateUserSubscriptionStatus(ctx, alice.UID,
		models.SubscriptionStatusActive, "cus_123", "sub_456")
	require.NoError(t, err)

	info, err := storage.GetSubscriptionInfo(ctx, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, info.Status)

	user, err := storage.GetUser(ctx, alice.UID)
	require.NoError(t, err)
	assert.Equal(t, "cus_123", user.StripeCustomerID)
	assert.Equal(t, "sub_456", user.StripeSubscriptionID)

	t.Run("empty ids keep previous values", func(t *testing.T) {
		err := storage.UpdateUserSubscriptionStatus(ctx, alice.UID,
			models.SubscriptionStatusInactive, "", "")
		require.NoError(t, err)

		user, err := storage.GetUser(ctx, alice.UID)
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionStatusInactive, user.SubscriptionStatus)
		assert.Equal(t, "cus_123", user.StripeCustomerID)
	})
}
