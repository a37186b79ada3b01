package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestUsers(t *testing.T) (*Users, *FileDocuments) {
	t.Helper()
	docs, err := NewFileDocuments(t.TempDir())
	if err != nil {
		t.Fatalf("new docs: %v", err)
	}
	users := NewUsers(docs)
	users.cost = bcrypt.MinCost
	return users, docs
}

func TestUsersCreateUser(t *testing.T) {
	users, _ := newTestUsers(t)
	ctx := context.Background()

	if err := users.CreateUser(ctx, "alice", "secret", "Alice", "https://img/a.png"); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name      string
		username  string
		password  string
		firstName string
		image     string
		wantErr   error
	}{
		{name: "duplicate", username: "alice", password: "x", firstName: "A", image: "i", wantErr: ErrUserExists},
		{name: "duplicate other case", username: "ALICE", password: "x", firstName: "A", image: "i", wantErr: ErrUserExists},
		{name: "missing password", username: "bob", firstName: "B", image: "i", wantErr: ErrIncompleteProfile},
		{name: "missing image", username: "bob", password: "x", firstName: "B", wantErr: ErrIncompleteProfile},
		{name: "valid", username: "bob", password: "x", firstName: "B", image: "i"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := users.CreateUser(ctx, tc.username, tc.password, tc.firstName, tc.image)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestUsersAuthenticate(t *testing.T) {
	users, docs := newTestUsers(t)
	ctx := context.Background()
	if err := users.CreateUser(ctx, "alice", "secret", "Alice", "a.png"); err != nil {
		t.Fatalf("create: %v", err)
	}

	user, err := users.Authenticate(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username != "alice" || user.FirstName != "Alice" || user.Image != "a.png" {
		t.Fatalf("unexpected user: %#v", user)
	}

	if _, err := users.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := users.Authenticate(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown user, got %v", err)
	}

	raw, err := os.ReadFile(docs.Path(UsersDocument))
	if err != nil {
		t.Fatalf("read users document: %v", err)
	}
	if strings.Contains(string(raw), `"secret"`) {
		t.Fatal("plain password persisted")
	}
}

func TestUsersProfile(t *testing.T) {
	users, _ := newTestUsers(t)
	ctx := context.Background()
	if err := users.CreateUser(ctx, "alice", "secret", "Alice", "a.png"); err != nil {
		t.Fatalf("create: %v", err)
	}

	user, err := users.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if user.FirstName != "Alice" {
		t.Fatalf("unexpected profile: %#v", user)
	}

	if _, err := users.Profile(ctx, "bob"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
