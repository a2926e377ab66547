package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/repository"
)

func seedSession(t *testing.T, repo *inMemorySessionRepo, id string, accountID uint, expiresAt time.Time) {
	t.Helper()
	err := repo.Create(context.Background(), &domain.Session{
		ID:               id,
		AccountID:        accountID,
		Realm:            domain.RealmCustomer,
		RefreshTokenHash: "digest-" + id,
		UserAgent:        "go-test",
		IP:               "127.0.0.1",
		LoginMethod:      "password",
		CreatedAt:        time.Now().UTC(),
		LastUsedAt:       time.Now().UTC(),
		ExpiresAt:        expiresAt,
	})
	if err != nil {
		t.Fatalf("seed session %s: %v", id, err)
	}
}

func TestSessionListOmitsTokenMaterial(t *testing.T) {
	repo := newInMemorySessionRepo()
	svc := NewSessionService(repo)
	seedSession(t, repo, "s1", 7, time.Now().Add(time.Hour))

	result, err := svc.List(context.Background(), 7, repository.PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(result.Items))
	}
	view := result.Items[0]
	if view.ID != "s1" || view.UserAgent != "go-test" || view.LoginMethod != "password" {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestSessionListScopedToAccount(t *testing.T) {
	repo := newInMemorySessionRepo()
	svc := NewSessionService(repo)
	seedSession(t, repo, "mine", 7, time.Now().Add(time.Hour))
	seedSession(t, repo, "theirs", 8, time.Now().Add(time.Hour))

	result, err := svc.List(context.Background(), 7, repository.PageRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "mine" {
		t.Fatalf("expected only the owner's session, got %+v", result.Items)
	}
}

func TestSessionRevokeForeignSessionNotFound(t *testing.T) {
	repo := newInMemorySessionRepo()
	svc := NewSessionService(repo)
	seedSession(t, repo, "theirs", 8, time.Now().Add(time.Hour))

	err := svc.Revoke(context.Background(), 7, "theirs", testClient)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for foreign session, got %v", err)
	}
	if repo.count() != 1 {
		t.Fatal("foreign session must not be deleted")
	}
}

func TestSessionRevokeOwnSession(t *testing.T) {
	repo := newInMemorySessionRepo()
	svc := NewSessionService(repo)
	seedSession(t, repo, "mine", 7, time.Now().Add(time.Hour))

	if err := svc.Revoke(context.Background(), 7, "mine", testClient); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if repo.count() != 0 {
		t.Fatal("session must be deleted")
	}
	if err := svc.Revoke(context.Background(), 7, "mine", testClient); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second revoke, got %v", err)
	}
}

func TestSessionRevokeAll(t *testing.T) {
	repo := newInMemorySessionRepo()
	svc := NewSessionService(repo)
	seedSession(t, repo, "a", 7, time.Now().Add(time.Hour))
	seedSession(t, repo, "b", 7, time.Now().Add(time.Hour))
	seedSession(t, repo, "c", 8, time.Now().Add(time.Hour))

	n, err := svc.RevokeAll(context.Background(), 7, testClient)
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if n != 2 {
		t.Fatalf("revoked = %d, want 2", n)
	}
	if repo.count() != 1 {
		t.Fatal("other account's session must survive")
	}
}
