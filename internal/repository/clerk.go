package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/clerk/clerk-sdk-go/v2"
)

type clerkUserGetter interface {
	Get(ctx context.Context, id string) (*clerk.User, error)
}

// ClerkRoleStore reads the role from a Clerk user's public metadata.
type ClerkRoleStore struct {
	users     clerkUserGetter
	roleField string
}

func NewClerkRoleStore(users clerkUserGetter, roleField string) *ClerkRoleStore {
	return &ClerkRoleStore{users: users, roleField: roleField}
}

func (s *ClerkRoleStore) GetUserRecord(ctx context.Context, uid string) (*UserRecord, error) {
	u, err := s.users.Get(ctx, uid)
	if err != nil {
		var apiErr *clerk.APIErrorResponse
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching clerk user %s: %w", uid, err)
	}
	if u == nil {
		return nil, nil
	}

	if len(u.PublicMetadata) == 0 {
		return &UserRecord{}, nil
	}

	var metadata map[string]any
	if err := json.Unmarshal(u.PublicMetadata, &metadata); err != nil {
		// Metadata that is not an object cannot carry a role.
		return &UserRecord{}, nil
	}

	return recordFromData(metadata, s.roleField), nil
}
