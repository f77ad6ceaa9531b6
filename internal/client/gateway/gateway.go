// Package gateway abstracts the remote backend behind one interface: a
// REST API keyed by numeric user id, authenticated per request with PIN
// verification material. Implementations map transport and HTTP status
// failures onto the shared error taxonomy in internal/common.
package gateway

import (
	"context"

	"github.com/dmitrijs2005/pintask/internal/client/creds"
	"github.com/dmitrijs2005/pintask/internal/client/models"
)

// CreateIdentityResult is the response to a successful identity creation.
// The server assigns the user id; the PIN hash it stored came from the
// request.
type CreateIdentityResult struct {
	UserID int64
	// Tasks echoes the initial upload with server-assigned ids and
	// timestamps, in upload order.
	Tasks []models.Task
}

// Gateway is the remote operation surface consumed by the sync reconciler.
//
// All operations except CreateIdentity are idempotent at the resource-id
// level: repeating a push, edit, or delete with the same id is safe.
// CreateIdentity must be invoked at most once per "go online" action; the
// reconciler enforces that, not the gateway.
//
// Retry policy: transient transport faults are retried up to 2 times
// (3 attempts total) for every operation except CreateIdentity, which is
// never retried. HTTP-level failures (404, auth, 5xx) are terminal and
// surface immediately as mapped sentinel errors.
type Gateway interface {
	CreateIdentity(ctx context.Context, pinHash string, tasks []models.Task) (*CreateIdentityResult, error)
	FetchTasks(ctx context.Context, userID int64, cred creds.Credential) ([]models.Task, error)
	PushTask(ctx context.Context, task *models.Task, userID int64, cred creds.Credential) (*models.Task, error)
	EditTask(ctx context.Context, task *models.Task, userID int64, cred creds.Credential) error
	DeleteTask(ctx context.Context, taskID int64, userID int64, cred creds.Credential) error
	DeleteAllTasks(ctx context.Context, userID int64) error
	DeleteIdentity(ctx context.Context, userID int64, cred creds.Credential) error
}
