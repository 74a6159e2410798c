package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreRoleStore reads users/{uid} documents.
type FirestoreRoleStore struct {
	roleField string
	get       func(ctx context.Context, uid string) (*firestore.DocumentSnapshot, error)
}

func NewFirestoreRoleStore(client *firestore.Client, collection, roleField string) *FirestoreRoleStore {
	return &FirestoreRoleStore{
		roleField: roleField,
		get: func(ctx context.Context, uid string) (*firestore.DocumentSnapshot, error) {
			return client.Collection(collection).Doc(uid).Get(ctx)
		},
	}
}

func (s *FirestoreRoleStore) GetUserRecord(ctx context.Context, uid string) (*UserRecord, error) {
	if uid == "" {
		return nil, nil
	}

	snap, err := s.get(ctx, uid)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("reading user document %s: %w", uid, err)
	}
	if snap == nil || !snap.Exists() {
		return nil, nil
	}

	return recordFromData(snap.Data(), s.roleField), nil
}
