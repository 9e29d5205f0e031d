package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"insightportal/internal/config"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	if err := Migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestInsertIDAndUniqueViolation(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	ctx := context.Background()
	const q = `INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`

	id, err := InsertID(ctx, db, q, "alice", "hash", "user", time.Now().UTC())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	_, err = InsertID(ctx, db, q, "alice", "other", "admin", time.Now().UTC())
	if err == nil {
		t.Fatalf("expected unique violation")
	}
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if IsUniqueViolation(errors.New("plain")) || IsUniqueViolation(nil) {
		t.Fatalf("plain errors are not unique violations")
	}
}

func TestTokensCascadeToChatMessages(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	userID, err := InsertID(ctx, db, `INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		"bob", "hash", "user", now)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO user_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		"tok", userID, now, now.Add(time.Hour)); err != nil {
		t.Fatalf("insert token: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO chat_messages (token, role, content, created_at) VALUES (?, ?, ?, ?)`,
		"tok", "user", "hi", now); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM user_tokens WHERE token = ?`, "tok"); err != nil {
		t.Fatalf("delete token: %v", err)
	}
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM chat_messages`); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected cascade delete, %d messages left", count)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{"oracle": {}}}
	if _, err := Open("oracle", cfg); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := Open("sqlite3", cfg); err == nil {
		t.Fatalf("expected missing config error")
	}
}
