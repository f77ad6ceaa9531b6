package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/pintask/internal/client/creds"
	"github.com/dmitrijs2005/pintask/internal/client/models"
	"github.com/dmitrijs2005/pintask/internal/common"
	"github.com/sethvargo/go-retry"
)

// Credential headers. The active hash scheme sends only X-Pin-Hash; the
// deprecated envelope scheme forwards its ciphertext parts for server-side
// comparison.
const (
	headerPINHash      = "X-Pin-Hash"
	headerEncryptedPIN = "X-Encrypted-Pin"
	headerIV           = "X-Iv"
	headerAuthTag      = "X-Auth-Tag"
)

// writeRetries is the bounded retry budget for idempotent operations:
// 2 retries, 3 attempts total. CreateIdentity gets zero because repeating
// it mints identities.
const writeRetries = 2

// RESTGateway implements Gateway against the task backend's REST surface.
type RESTGateway struct {
	baseURL string
	client  *http.Client
	retryIn time.Duration
}

// NewRESTGateway builds a gateway for the API at baseURL. timeout bounds
// each individual request; retryInterval is the pause between attempts and
// is kept near zero so a blip on the wire resolves within one user action.
func NewRESTGateway(baseURL string, timeout time.Duration, retryInterval time.Duration) *RESTGateway {
	if retryInterval <= 0 {
		retryInterval = time.Millisecond
	}
	return &RESTGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		retryIn: retryInterval,
	}
}

func applyCredential(req *http.Request, cred creds.Credential) {
	if env := cred.Envelope; env != nil {
		req.Header.Set(headerEncryptedPIN, env.EncryptedPIN)
		req.Header.Set(headerIV, env.IV)
		req.Header.Set(headerAuthTag, env.AuthTag)
		return
	}
	req.Header.Set(headerPINHash, cred.PINHash)
}

// mapStatus translates an HTTP status into the shared error taxonomy.
func mapStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return common.ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return common.ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: status %d", common.ErrServer, code)
	default:
		return fmt.Errorf("%w: unexpected status %d", common.ErrServer, code)
	}
}

// do issues one request and decodes a 2xx JSON body into out (when out is
// non-nil). Transport faults come back as common.ErrTransient; HTTP
// failures are mapped via mapStatus.
func (g *RESTGateway) do(ctx context.Context, method, path string, cred *creds.Credential, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != nil {
		applyCredential(req, *cred)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", common.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return mapStatus(resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRetry wraps do with the bounded transient-fault retry budget.
func (g *RESTGateway) doRetry(ctx context.Context, method, path string, cred *creds.Credential, body any, out any) error {
	backoff := retry.WithMaxRetries(writeRetries, retry.NewConstant(g.retryIn))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := g.do(ctx, method, path, cred, body, out)
		if common.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// insertTasksRequest matches POST /insert-tasks. The endpoint also takes
// a "userIdParam" to append rows to an existing identity, but this client
// only ever creates fresh identities there and omits it. Older backend
// revisions answered with "userid", newer ones with "user_id"; both are
// accepted.
type insertTasksRequest struct {
	PINHash string        `json:"pinHash,omitempty"`
	Tasks   []models.Task `json:"tasks"`
}

type insertTasksResponse struct {
	UserID    int64         `json:"user_id"`
	UserIDAlt int64         `json:"userid"`
	Tasks     []models.Task `json:"tasks"`
}

func (r *insertTasksResponse) userID() int64 {
	if r.UserID != 0 {
		return r.UserID
	}
	return r.UserIDAlt
}

// CreateIdentity registers a new identity holding the given initial tasks.
// It is not retried: a repeat after an ambiguous failure could mint a
// second identity the user never learns the id of.
func (g *RESTGateway) CreateIdentity(ctx context.Context, pinHash string, tasks []models.Task) (*CreateIdentityResult, error) {
	body := insertTasksRequest{PINHash: pinHash, Tasks: tasks}
	var resp insertTasksResponse
	if err := g.do(ctx, http.MethodPost, "/insert-tasks", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return &CreateIdentityResult{UserID: resp.userID(), Tasks: resp.Tasks}, nil
}

// FetchTasks downloads the identity's task set. The endpoint has two
// historical response shapes: a bare task array, and the envelope-era
// object {tasks, encryptedPin, iv, authTag}; both are accepted.
func (g *RESTGateway) FetchTasks(ctx context.Context, userID int64, cred creds.Credential) ([]models.Task, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/tasks/%d", userID)
	if err := g.doRetry(ctx, http.MethodGet, path, &cred, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}
	return decodeTaskList(raw)
}

func decodeTaskList(raw json.RawMessage) ([]models.Task, error) {
	var tasks []models.Task
	if err := json.Unmarshal(raw, &tasks); err == nil {
		return tasks, nil
	}
	var wrapped struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode task list: %w", err)
	}
	return wrapped.Tasks, nil
}

// PushTask inserts a single task and returns the stored row. The server
// assigns created_at/updated_at and may reassign the id; the returned task
// is authoritative.
func (g *RESTGateway) PushTask(ctx context.Context, task *models.Task, userID int64, cred creds.Credential) (*models.Task, error) {
	var stored models.Task
	path := fmt.Sprintf("/tasks/%d", userID)
	if err := g.doRetry(ctx, http.MethodPost, path, &cred, task, &stored); err != nil {
		return nil, fmt.Errorf("push task: %w", err)
	}
	return &stored, nil
}

func (g *RESTGateway) EditTask(ctx context.Context, task *models.Task, userID int64, cred creds.Credential) error {
	path := fmt.Sprintf("/tasks/%d/%d", userID, task.ID)
	if err := g.doRetry(ctx, http.MethodPut, path, &cred, task, nil); err != nil {
		return fmt.Errorf("edit task: %w", err)
	}
	return nil
}

func (g *RESTGateway) DeleteTask(ctx context.Context, taskID int64, userID int64, cred creds.Credential) error {
	path := fmt.Sprintf("/tasks/%d/%d", userID, taskID)
	if err := g.doRetry(ctx, http.MethodDelete, path, &cred, nil, nil); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (g *RESTGateway) DeleteAllTasks(ctx context.Context, userID int64) error {
	path := fmt.Sprintf("/tasks/%d", userID)
	if err := g.doRetry(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("delete all tasks: %w", err)
	}
	return nil
}

// DeleteIdentity removes the identity and cascades to its tasks. An
// envelope credential additionally travels in the body, which is how the
// envelope-era endpoint expects it.
func (g *RESTGateway) DeleteIdentity(ctx context.Context, userID int64, cred creds.Credential) error {
	body := map[string]any{"userId": userID}
	if env := cred.Envelope; env != nil {
		body["encryptedPin"] = env.EncryptedPIN
		body["iv"] = env.IV
		body["authTag"] = env.AuthTag
	}
	if err := g.doRetry(ctx, http.MethodDelete, "/user", &cred, body, nil); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}
