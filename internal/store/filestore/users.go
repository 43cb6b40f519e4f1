package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iliyamo/studio-class-booking/internal/identity"
	"github.com/iliyamo/studio-class-booking/internal/model"
)

const usersFile = "users.json"

// UserSet is a fixed, file-seeded known-user set implementing
// identity.Resolver for dev mode, where no MySQL-backed identity
// provider is running.  Tokens are minted out of band with the shared
// JWT secret; the set only answers the gate's "is this identity
// known" question.
type UserSet struct {
	byID map[uint64]model.UserIdentity
}

// LoadUsers reads users.json from dir.  A missing file yields an
// empty set: every credential is rejected as unknown, which is the
// safe default.
func LoadUsers(dir string) (*UserSet, error) {
	set := &UserSet{byID: make(map[uint64]model.UserIdentity)}
	raw, err := os.ReadFile(filepath.Join(dir, usersFile))
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("filestore: read %s: %w", usersFile, err)
	}
	var users []struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("filestore: parse %s: %w", usersFile, err)
	}
	for _, u := range users {
		role := u.Role
		if role == "" {
			role = "MEMBER"
		}
		set.byID[u.ID] = model.UserIdentity{ID: u.ID, Email: u.Email, Role: role}
	}
	return set, nil
}

// ResolveIdentity implements identity.Resolver.
func (s *UserSet) ResolveIdentity(ctx context.Context, userID uint64) (model.UserIdentity, error) {
	ident, ok := s.byID[userID]
	if !ok {
		return model.UserIdentity{}, identity.ErrUnknownIdentity
	}
	return ident, nil
}
