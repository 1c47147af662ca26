package api

import (
	"context"

	"boardsync/domain"
)

// Storage abstracts workspace persistence for handlers.
type Storage interface {
	FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error)
	SaveWorkspace(ctx context.Context, workspaceID string, ws domain.Workspace, expectedVersion int64, requestID, userID string) (int64, error)
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Notifier announces accepted writes so other clients can re-fetch.
type Notifier interface {
	WorkspaceChanged(ctx context.Context, workspaceID string, version int64) error
}
