package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
)

// UsersDocument is the document name holding registered accounts.
const UsersDocument = "users"

var (
	// ErrUserExists signals the username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound is returned for profile lookups of unknown accounts.
	ErrUserNotFound = errors.New("user not found")
	// ErrIncompleteProfile rejects registrations with missing fields.
	ErrIncompleteProfile = errors.New("username, password, first name and image are required")

	dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")
)

// User is the public view of an account.
type User struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	Image     string `json:"image"`
}

type userRecord struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	FirstName    string `json:"firstName"`
	Image        string `json:"image"`
}

// Users keeps the account registry in the "users" document.
type Users struct {
	docs Documents
	cost int

	mu sync.Mutex
}

// NewUsers builds an account registry over docs.
func NewUsers(docs Documents) *Users {
	return &Users{docs: docs, cost: bcrypt.DefaultCost}
}

// CreateUser registers a new account. Usernames are unique ignoring case.
func (u *Users) CreateUser(ctx context.Context, username, password, firstName, image string) error {
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)
	image = strings.TrimSpace(image)
	if username == "" || password == "" || firstName == "" || image == "" {
		return ErrIncompleteProfile
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	unlock, err := lockDocument(ctx, u.docs, UsersDocument)
	if err != nil {
		return fmt.Errorf("lock users: %w", err)
	}
	defer func() { _ = unlock() }()

	records, err := u.load(ctx)
	if err != nil {
		return err
	}

	folded := cases.Fold().String(username)
	for _, rec := range records {
		if cases.Fold().String(rec.Username) == folded {
			return ErrUserExists
		}
	}

	records = append(records, userRecord{
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    firstName,
		Image:        image,
	})

	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := u.docs.Write(ctx, UsersDocument, body); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	return nil
}

// Authenticate validates credentials and returns the account.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	records, err := u.load(ctx)
	if err != nil {
		return User{}, err
	}

	rec, ok := findUser(records, username)
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return rec.public(), nil
}

// Profile returns the account stored under username.
func (u *Users) Profile(ctx context.Context, username string) (User, error) {
	records, err := u.load(ctx)
	if err != nil {
		return User{}, err
	}

	rec, ok := findUser(records, username)
	if !ok {
		return User{}, ErrUserNotFound
	}
	return rec.public(), nil
}

func (u *Users) load(ctx context.Context) ([]userRecord, error) {
	body, err := u.docs.Read(ctx, UsersDocument)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read users: %w", err)
	}

	var records []userRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return records, nil
}

func findUser(records []userRecord, username string) (userRecord, bool) {
	for _, rec := range records {
		if rec.Username == username {
			return rec, true
		}
	}
	return userRecord{}, false
}

func (r userRecord) public() User {
	return User{Username: r.Username, FirstName: r.FirstName, Image: r.Image}
}
