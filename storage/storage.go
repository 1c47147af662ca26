// Package storage persists workspace documents. Each workspace is one table
// entity holding the serialized document plus the monotonic version counter;
// the version plus the entity ETag gate every write. Accepted writes are
// mirrored onto a change-feed queue for offline consumers.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"boardsync/domain"
)

// ErrVersionConflict is returned when the submitted version does not match
// the stored one. The API layer maps it to HTTP 409.
var ErrVersionConflict = errors.New("workspace version mismatch")

// ErrChangeFeed wraps change-feed enqueue failures. The document write has
// already been accepted when this is returned, so callers should log and
// carry on rather than fail the request.
var ErrChangeFeed = errors.New("change feed enqueue failed")

const workspacePartition = "workspace"

// Storage provides access to the workspace table and the change-feed queue.
type Storage struct {
	workspaceTable *aztables.Client
	changeFeed     *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string.
func New(connStr, workspacesTable, changeFeedQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	cf, err := azqueue.NewQueueClientFromConnectionString(connStr, changeFeedQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{workspaceTable: svc.NewClient(workspacesTable), changeFeed: cf}, nil
}

type workspaceEntity struct {
	aztables.Entity
	Data    string `json:"Data"`
	Version int64  `json:"Version"`
}

// ChangeEvent is the change-feed record written for every accepted save.
type ChangeEvent struct {
	WorkspaceID string `json:"workspaceId"`
	Version     int64  `json:"version"`
	RequestID   string `json:"requestId,omitempty"`
	UserID      string `json:"userId,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// FetchWorkspace loads the document for the given workspace. An unknown
// workspace yields an empty document at version 0 so a fresh client always
// has a usable tree.
func (s *Storage) FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	resp, err := s.workspaceTable.GetEntity(ctx, workspacePartition, workspaceID, nil)
	if err != nil {
		if isStatus(err, 404) {
			return domain.Workspace{}.Normalize(), nil
		}
		return domain.Workspace{}, err
	}
	return decodeWorkspaceEntity(resp.Value)
}

// decodeWorkspaceEntity tolerates a malformed document body: the entity's
// version survives but the tree degrades to empty defaults.
func decodeWorkspaceEntity(data []byte) (domain.Workspace, error) {
	var ent workspaceEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Workspace{}, err
	}
	var ws domain.Workspace
	if err := json.Unmarshal([]byte(ent.Data), &ws); err != nil {
		ws = domain.Workspace{}
	}
	ws.Version = ent.Version
	return ws.Normalize(), nil
}

// SaveWorkspace replaces the document when expectedVersion matches the
// stored version, assigning and returning the next version. The entity ETag
// backs the version check so two racing writers cannot both succeed.
func (s *Storage) SaveWorkspace(ctx context.Context, workspaceID string, ws domain.Workspace, expectedVersion int64, requestID, userID string) (int64, error) {
	current := int64(0)
	var etag azcore.ETag
	resp, err := s.workspaceTable.GetEntity(ctx, workspacePartition, workspaceID, nil)
	switch {
	case err == nil:
		var ent workspaceEntity
		if err := json.Unmarshal(resp.Value, &ent); err != nil {
			return 0, err
		}
		current = ent.Version
		etag = resp.ETag
	case isStatus(err, 404):
		// first save of a new workspace
	default:
		return 0, err
	}

	if current != expectedVersion {
		return 0, fmt.Errorf("%w: have %d, submitted %d", ErrVersionConflict, current, expectedVersion)
	}

	newVersion := current + 1
	ws.Version = newVersion
	doc, err := json.Marshal(ws)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(workspaceEntity{
		Entity: aztables.Entity{
			PartitionKey: workspacePartition,
			RowKey:       workspaceID,
		},
		Data:    string(doc),
		Version: newVersion,
	})
	if err != nil {
		return 0, err
	}

	if etag == "" {
		if _, err := s.workspaceTable.AddEntity(ctx, payload, nil); err != nil {
			if isStatus(err, 409) {
				return 0, fmt.Errorf("%w: concurrent first save", ErrVersionConflict)
			}
			return 0, err
		}
	} else {
		opts := &aztables.UpdateEntityOptions{
			IfMatch:    to.Ptr(etag),
			UpdateMode: aztables.UpdateModeReplace,
		}
		if _, err := s.workspaceTable.UpdateEntity(ctx, payload, opts); err != nil {
			if isStatus(err, 412) {
				return 0, fmt.Errorf("%w: entity changed underneath", ErrVersionConflict)
			}
			return 0, err
		}
	}

	event, err := json.Marshal(ChangeEvent{
		WorkspaceID: workspaceID,
		Version:     newVersion,
		RequestID:   requestID,
		UserID:      userID,
		Timestamp:   time.Now().UnixNano(),
	})
	if err == nil {
		_, err = s.changeFeed.EnqueueMessage(ctx, string(event), nil)
	}
	if err != nil {
		return newVersion, fmt.Errorf("%w: %v", ErrChangeFeed, err)
	}
	return newVersion, nil
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
