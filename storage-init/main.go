// storage-init provisions the workspace table and the change-feed queue
// before the first deployment. Re-running it is harmless.
package main

import (
	"context"
	"errors"
	"os"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

type schema struct {
	connStr         string
	workspacesTable string
	changeFeedQueue string
}

func schemaFromEnv() schema {
	s := schema{
		connStr:         os.Getenv("STORAGE_CONNECTION_STRING"),
		workspacesTable: os.Getenv("WORKSPACES_TABLE"),
		changeFeedQueue: os.Getenv("CHANGE_FEED_QUEUE"),
	}
	if s.connStr == "" || s.workspacesTable == "" || s.changeFeedQueue == "" {
		log.Fatal("missing storage config")
	}
	return s
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	s := schemaFromEnv()
	ctx := context.Background()

	if err := ensureTable(ctx, s); err != nil {
		log.Fatalf("table %s: %v", s.workspacesTable, err)
	}
	log.WithField("table", s.workspacesTable).Info("table ready")

	if err := ensureQueue(ctx, s); err != nil {
		log.Fatalf("queue %s: %v", s.changeFeedQueue, err)
	}
	log.WithField("queue", s.changeFeedQueue).Info("queue ready")
}

func ensureTable(ctx context.Context, s schema) error {
	svc, err := aztables.NewServiceClientFromConnectionString(s.connStr, nil)
	if err != nil {
		return err
	}
	_, err = svc.NewClient(s.workspacesTable).CreateTable(ctx, nil)
	if alreadyExists(err, string(aztables.TableAlreadyExists)) {
		return nil
	}
	return err
}

func ensureQueue(ctx context.Context, s schema) error {
	q, err := azqueue.NewQueueClientFromConnectionString(s.connStr, s.changeFeedQueue, nil)
	if err != nil {
		return err
	}
	_, err = q.Create(ctx, nil)
	if alreadyExists(err, "QueueAlreadyExists") {
		return nil
	}
	return err
}

func alreadyExists(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
