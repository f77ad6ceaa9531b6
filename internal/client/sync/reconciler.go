// Package sync contains the task-sync reconciliation engine: it observes
// local task mutations and remote change notifications, decides what to
// push, applies the bounded retry and conflict policy, and keeps the local
// store and the remote table convergent.
//
// Conflict policy is deliberately last-writer-wins at whole-task
// granularity, keyed by task id: login replaces the local collection
// wholesale, and a push overwrites the remote record's full row.
// Concurrent edits to the same task from two devices within the sync
// window are not merged; the later push wins.
package sync

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"

	"github.com/dmitrijs2005/pintask/internal/client/creds"
	"github.com/dmitrijs2005/pintask/internal/client/gateway"
	"github.com/dmitrijs2005/pintask/internal/client/models"
	"github.com/dmitrijs2005/pintask/internal/client/storage"
	"github.com/dmitrijs2005/pintask/internal/common"
	"github.com/dmitrijs2005/pintask/internal/cryptox"
	"github.com/dmitrijs2005/pintask/internal/logging"
)

// IDAllocator hands out device-scoped task ids. *storage.SQLiteStore
// satisfies it.
type IDAllocator interface {
	NextID(ctx context.Context) (int64, error)
}

// SyncContext bundles the collaborators the reconciler needs. It is
// constructed once at startup and threaded through explicitly; there are
// no process-wide singletons.
type SyncContext struct {
	Store   storage.Store
	IDs     IDAllocator
	Creds   *creds.Manager
	Gateway gateway.Gateway
	Log     logging.Logger
}

// Reconciler is the sync state machine. All local mutations while online
// are enqueued as deltas; a single consumer goroutine drains the queue,
// coalesces bursts per task id, and keeps at most one push in flight per
// identity. Remote-origin mutations (ApplyRemote, Login) bypass the queue,
// so a change that was just pulled is never pushed back.
type Reconciler struct {
	sc SyncContext

	mu      stdsync.Mutex
	tasks   []models.Task
	state   State
	session *creds.Session
	queue   []change
	parked  []change
	gen     uint64 // bumped on teardown so stale push results are discarded

	signal     chan struct{}
	pushCancel context.CancelFunc
	pushDone   chan struct{}
}

func NewReconciler(sc SyncContext) *Reconciler {
	return &Reconciler{
		sc:     sc,
		state:  Offline,
		signal: make(chan struct{}, 1),
	}
}

// Start loads persisted tasks and, if a session is remembered, resumes it
// and starts the push loop.
func (r *Reconciler) Start(ctx context.Context) error {
	tasks, err := storage.LoadTasks(ctx, r.sc.Store)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}

	r.mu.Lock()
	r.tasks = tasks
	r.mu.Unlock()

	session, err := r.sc.Creds.LoadSession(ctx)
	if errors.Is(err, common.ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	r.mu.Lock()
	r.session = session
	r.state = OnlineIdle
	r.mu.Unlock()
	r.startPusher()
	return nil
}

// State returns the current reconciler state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Session returns the active session, or nil while offline.
func (r *Reconciler) Session() *creds.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Tasks returns a snapshot copy of the in-memory collection.
func (r *Reconciler) Tasks() []models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (r *Reconciler) persistLocked(ctx context.Context) error {
	return storage.SaveTasks(ctx, r.sc.Store, r.tasks)
}

// enqueueLocked records a local-origin delta for the push loop. While
// offline the queue stays empty: mutations remain local and are uploaded
// wholesale by the next GoOnline.
func (r *Reconciler) enqueueLocked(c change) {
	if r.state == Offline {
		return
	}
	r.queue = append(r.queue, c)
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Add validates and appends a new task, persists, and schedules a push.
func (r *Reconciler) Add(ctx context.Context, title, description string) (*models.Task, error) {
	task := models.Task{Title: title, Description: description}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	id, err := r.sc.IDs.NextID(ctx)
	if err != nil {
		return nil, err
	}
	task.ID = id

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	if err := r.persistLocked(ctx); err != nil {
		return nil, err
	}
	r.enqueueLocked(change{kind: changeInsert, task: task})
	return task.Clone(), nil
}

// Toggle flips the done flag of the task with the given id.
func (r *Reconciler) Toggle(ctx context.Context, id int64) error {
	return r.update(ctx, id, func(t *models.Task) error {
		t.Done = !t.Done
		return nil
	})
}

// Edit replaces title and description of the task with the given id.
func (r *Reconciler) Edit(ctx context.Context, id int64, title, description string) error {
	return r.update(ctx, id, func(t *models.Task) error {
		t.Title = title
		t.Description = description
		return t.Validate()
	})
}

func (r *Reconciler) update(ctx context.Context, id int64, mutate func(*models.Task) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID != id {
			continue
		}
		candidate := r.tasks[i]
		if err := mutate(&candidate); err != nil {
			return err
		}
		r.tasks[i] = candidate
		if err := r.persistLocked(ctx); err != nil {
			return err
		}
		r.enqueueLocked(change{kind: changeUpdate, task: candidate})
		return nil
	}
	return fmt.Errorf("task %d: %w", id, common.ErrNotFound)
}

// Delete removes the task with the given id.
func (r *Reconciler) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID != id {
			continue
		}
		deleted := r.tasks[i]
		r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
		if err := r.persistLocked(ctx); err != nil {
			return err
		}
		r.enqueueLocked(change{kind: changeDelete, task: deleted})
		return nil
	}
	return fmt.Errorf("task %d: %w", id, common.ErrNotFound)
}

// DeleteAll wipes the local collection and, when online, the remote set.
func (r *Reconciler) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = nil
	if err := r.persistLocked(ctx); err != nil {
		return err
	}
	r.enqueueLocked(change{kind: changeClear})
	return nil
}

// GoOnline creates a new remote identity seeded with the current local
// collection. The returned PIN is shown to the user exactly once and is
// not recoverable afterwards. At most one identity is created per call;
// CreateIdentity is never retried underneath.
func (r *Reconciler) GoOnline(ctx context.Context) (userID int64, plainPIN string, err error) {
	r.mu.Lock()
	if r.state != Offline {
		r.mu.Unlock()
		return 0, "", errors.New("already online")
	}
	snapshot := make([]models.Task, len(r.tasks))
	copy(snapshot, r.tasks)
	r.mu.Unlock()

	pin, storedForm, err := r.sc.Creds.Generate()
	if err != nil {
		return 0, "", err
	}

	res, err := r.sc.Gateway.CreateIdentity(ctx, storedForm, snapshot)
	if err != nil {
		return 0, "", fmt.Errorf("go online: %w", err)
	}

	session := &creds.Session{
		UserID:     res.UserID,
		Credential: creds.Credential{PINHash: storedForm},
	}
	if err := r.sc.Creds.SaveSession(ctx, session); err != nil {
		// The remote identity exists but its session was never saved;
		// without the session the PIN is unrecoverable, so delete the
		// identity rather than orphan it.
		if derr := r.sc.Gateway.DeleteIdentity(ctx, res.UserID, session.Credential); derr != nil {
			r.sc.Log.Error(ctx, "failed to remove identity after session save failure",
				"user_id", res.UserID, "error", derr)
			return 0, "", fmt.Errorf("identity %d was created but its session could not be saved: %w", res.UserID, err)
		}
		return 0, "", fmt.Errorf("failed to save session: %w", err)
	}

	r.mu.Lock()
	// Server ids are authoritative from here on; adopt the echoed rows.
	if len(res.Tasks) == len(snapshot) {
		r.tasks = res.Tasks
	}
	for i := range r.tasks {
		r.tasks[i].UserID = res.UserID
	}
	r.session = session
	r.state = OnlineIdle
	if err := r.persistLocked(ctx); err != nil {
		r.mu.Unlock()
		return 0, "", err
	}
	r.mu.Unlock()

	r.startPusher()
	return res.UserID, pin, nil
}

// Login verifies an existing identity and replaces the local collection
// with the fetched remote set. This is destructive by design; callers must
// confirm with the user first.
//
// A wrong PIN surfaces common.ErrUnauthorized and leaves local state
// untouched. A 404 means the identity is gone: if it is the remembered
// session id, the stale session is torn down; for an ad-hoc id only the
// error is returned.
func (r *Reconciler) Login(ctx context.Context, userID int64, pin string) error {
	cred := creds.Credential{PINHash: cryptox.HashPIN(pin)}

	fetched, err := r.sc.Gateway.FetchTasks(ctx, userID, cred)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return r.handleIdentityGone(ctx, userID, err)
		}
		return err
	}

	session := &creds.Session{UserID: userID, Credential: cred}
	if err := r.sc.Creds.SaveSession(ctx, session); err != nil {
		return err
	}

	// Retire the previous session's pusher. Bumping gen makes an
	// in-flight push's outcome stale; without this a failing push for the
	// old identity would park its change into the new session and Retry
	// would replay it against the new account.
	r.mu.Lock()
	cancel := r.pushCancel
	done := r.pushDone
	r.pushCancel = nil
	r.pushDone = nil
	r.gen++
	r.tasks = fetched
	r.session = session
	r.state = OnlineIdle
	r.queue = nil
	r.parked = nil
	if err := r.persistLocked(ctx); err != nil {
		r.mu.Unlock()
		return err
	}
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	r.startPusher()
	return nil
}

// Refresh re-fetches the remote set for the active session and replaces
// the local collection with it. A 404 means the identity was deleted from
// another device and tears the stale session down.
func (r *Reconciler) Refresh(ctx context.Context) error {
	session := r.Session()
	if session == nil {
		return common.ErrNoSession
	}

	fetched, err := r.sc.Gateway.FetchTasks(ctx, session.UserID, session.Credential)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return r.handleIdentityGone(ctx, session.UserID, err)
		}
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = fetched
	return r.persistLocked(ctx)
}

// handleIdentityGone implements the 404 split: a vanished remembered
// identity (deleted from another device) tears the local session down and
// empties the collection; an unknown ad-hoc id only reports the error.
func (r *Reconciler) handleIdentityGone(ctx context.Context, userID int64, cause error) error {
	r.mu.Lock()
	remembered := r.session != nil && r.session.UserID == userID
	r.mu.Unlock()

	if !remembered {
		return cause
	}

	r.sc.Log.Warn(ctx, "remembered identity no longer exists, clearing session", "user_id", userID)
	if err := r.teardown(ctx, true); err != nil {
		return err
	}
	return cause
}

// GoOffline clears session credentials and stops pushing. The in-flight
// push, if any, is cancelled and its result discarded so a cleared session
// cannot be resurrected. Local tasks are retained.
func (r *Reconciler) GoOffline(ctx context.Context) error {
	return r.teardown(ctx, false)
}

// DeleteIdentity removes the remote identity and all of its tasks, then
// clears the session and the local collection.
func (r *Reconciler) DeleteIdentity(ctx context.Context) error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return common.ErrNoSession
	}

	if err := r.sc.Gateway.DeleteIdentity(ctx, session.UserID, session.Credential); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return r.teardown(ctx, true)
}

// teardown cancels any in-flight push, clears credentials, and goes
// offline. When dropTasks is set the local collection is emptied as well.
func (r *Reconciler) teardown(ctx context.Context, dropTasks bool) error {
	r.mu.Lock()
	cancel := r.pushCancel
	done := r.pushDone
	r.pushCancel = nil
	r.pushDone = nil
	r.gen++
	r.session = nil
	r.state = Offline
	r.queue = nil
	r.parked = nil
	if dropTasks {
		r.tasks = nil
	}
	err := r.persistLocked(ctx)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if cerr := r.sc.Creds.ClearSession(ctx); cerr != nil {
		return cerr
	}
	return err
}

// Retry replays the parked changes after a failed push.
func (r *Reconciler) Retry(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != OnlineError {
		return errors.New("nothing to retry")
	}
	r.state = OnlineIdle
	select {
	case r.signal <- struct{}{}:
	default:
	}
	return nil
}

// ApplyRemote applies an inbound realtime event to the in-memory
// collection. The feed is trusted as authoritative for the fields it
// carries; events are idempotent (duplicates and self-echo are no-ops) and
// remote-origin, so nothing here is ever pushed back.
func (r *Reconciler) ApplyRemote(ctx context.Context, event *models.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case models.EventInsert:
		if event.New == nil {
			return nil
		}
		if r.indexOfLocked(event.New.ID) >= 0 {
			return nil
		}
		r.tasks = append(r.tasks, *event.New)

	case models.EventUpdate:
		if event.New == nil {
			return nil
		}
		if i := r.indexOfLocked(event.New.ID); i >= 0 {
			r.tasks[i] = *event.New
		} else {
			r.tasks = append(r.tasks, *event.New)
		}

	case models.EventDelete:
		if event.Old == nil {
			return nil
		}
		i := r.indexOfLocked(event.Old.ID)
		if i < 0 {
			return nil
		}
		r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)

	default:
		r.sc.Log.Warn(ctx, "ignoring unknown change event", "type", event.Type)
		return nil
	}

	return r.persistLocked(ctx)
}

func (r *Reconciler) indexOfLocked(id int64) int {
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// startPusher launches the single consumer goroutine for the current
// session. It exits when teardown cancels its context.
func (r *Reconciler) startPusher() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	r.pushCancel = cancel
	r.pushDone = done
	gen := r.gen
	r.mu.Unlock()

	go r.pushLoop(ctx, gen, done)
}

func (r *Reconciler) pushLoop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.signal:
		}

		for {
			batch, session := r.drain(gen)
			if len(batch) == 0 {
				break
			}

			r.setState(gen, OnlinePushing)
			failed := r.pushBatch(ctx, session, batch)

			if ctx.Err() != nil {
				return
			}
			if len(failed) > 0 {
				r.park(gen, failed)
				break
			}
			r.settle(gen)
		}
	}
}

// drain takes parked changes first, then everything queued, coalesced per
// task id. Returns nothing if the session generation moved on.
func (r *Reconciler) drain(gen uint64) ([]change, *creds.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen || r.session == nil || r.state == OnlineError {
		return nil, nil
	}
	batch := append(r.parked, r.queue...)
	r.parked = nil
	r.queue = nil
	return coalesce(batch), r.session
}

// pushBatch issues one gateway call per change. On the first failure the
// failed change and the rest of the batch are returned for parking, so no
// mutation is ever dropped.
func (r *Reconciler) pushBatch(ctx context.Context, session *creds.Session, batch []change) []change {
	for i, c := range batch {
		if err := r.pushOne(ctx, session, c); err != nil {
			if ctx.Err() == nil {
				r.sc.Log.Error(ctx, "push failed after retries", "error", err)
			}
			return batch[i:]
		}
	}
	return nil
}

func (r *Reconciler) pushOne(ctx context.Context, session *creds.Session, c change) error {
	switch c.kind {
	case changeInsert:
		stored, err := r.sc.Gateway.PushTask(ctx, &c.task, session.UserID, session.Credential)
		if err != nil {
			return err
		}
		r.adoptServerRow(ctx, c.task.ID, stored)
		return nil
	case changeUpdate:
		return r.sc.Gateway.EditTask(ctx, &c.task, session.UserID, session.Credential)
	case changeDelete:
		return r.sc.Gateway.DeleteTask(ctx, c.task.ID, session.UserID, session.Credential)
	case changeClear:
		return r.sc.Gateway.DeleteAllTasks(ctx, session.UserID)
	default:
		return nil
	}
}

// adoptServerRow remaps a just-inserted task to its server-assigned id and
// timestamps. Remote-origin, so it does not re-enqueue.
func (r *Reconciler) adoptServerRow(ctx context.Context, localID int64, stored *models.Task) {
	if stored == nil || stored.ID == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOfLocked(localID); i >= 0 {
		r.tasks[i] = *stored
		if err := r.persistLocked(ctx); err != nil {
			r.sc.Log.Error(ctx, "failed to persist server row", "error", err)
		}
	}
}

func (r *Reconciler) park(gen uint64, failed []change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.parked = append(failed, r.parked...)
	r.state = OnlineError
}

// settle returns to OnlineIdle once the queue is empty.
func (r *Reconciler) settle(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen || r.state != OnlinePushing {
		return
	}
	if len(r.queue) == 0 && len(r.parked) == 0 {
		r.state = OnlineIdle
	}
}

func (r *Reconciler) setState(gen uint64, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen {
		r.state = s
	}
}
