package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/pintask/internal/client/models"
	"github.com/dmitrijs2005/pintask/internal/client/storage"
	"github.com/dmitrijs2005/pintask/internal/client/sync"
	"github.com/dmitrijs2005/pintask/internal/cryptox"
)

func (a *App) printErr(err error) {
	fmt.Fprintf(a.out, "Error: %v\n", err)
	if a.reconciler.State() == sync.OnlineError {
		fmt.Fprintln(a.out, "Type 'retry' to re-send the failed change.")
	}
}

// Add prompts for title and description and creates a task.
func (a *App) Add(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, fmt.Sprintf("Title (up to %d characters)", models.MaxTitleLen), a.out)
	if err != nil {
		return err
	}
	description, err := GetSimpleText(a.reader, fmt.Sprintf("Description (optional, up to %d characters)", models.MaxDescriptionLen), a.out)
	if err != nil {
		return err
	}

	task, err := a.reconciler.Add(ctx, title, description)
	if err != nil {
		a.printErr(err)
		return err
	}
	fmt.Fprintf(a.out, "Added task %d\n", task.ID)
	return nil
}

// List prints the collection through the persisted view filter.
func (a *App) List(ctx context.Context) error {
	filter, err := storage.LoadFilter(ctx, a.store)
	if err != nil {
		a.printErr(err)
		return err
	}

	tasks := filter.Apply(a.reconciler.Tasks())
	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "No tasks.")
		return nil
	}

	fmt.Fprintf(a.out, "Tasks (%s):\n", filter)
	for _, t := range tasks {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(a.out, "  [%s] %d  %s", mark, t.ID, t.Title)
		if t.Description != "" {
			fmt.Fprintf(a.out, " — %s", t.Description)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *App) promptTaskID(prompt string) (int64, error) {
	raw, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

// Toggle flips the done flag of a task.
func (a *App) Toggle(ctx context.Context) error {
	id, err := a.promptTaskID("Task id to toggle")
	if err != nil {
		a.printErr(err)
		return err
	}
	if err := a.reconciler.Toggle(ctx, id); err != nil {
		a.printErr(err)
		return err
	}
	return nil
}

// Edit replaces a task's title and description.
func (a *App) Edit(ctx context.Context) error {
	id, err := a.promptTaskID("Task id to edit")
	if err != nil {
		a.printErr(err)
		return err
	}
	title, err := GetSimpleText(a.reader, "New title", a.out)
	if err != nil {
		return err
	}
	description, err := GetSimpleText(a.reader, "New description", a.out)
	if err != nil {
		return err
	}
	if err := a.reconciler.Edit(ctx, id, title, description); err != nil {
		a.printErr(err)
		return err
	}
	return nil
}

// Delete removes a single task.
func (a *App) Delete(ctx context.Context) error {
	id, err := a.promptTaskID("Task id to delete")
	if err != nil {
		a.printErr(err)
		return err
	}
	if err := a.reconciler.Delete(ctx, id); err != nil {
		a.printErr(err)
		return err
	}
	return nil
}

// Clear deletes every task, remotely too when online.
func (a *App) Clear(ctx context.Context) error {
	if !GetConfirm(a.reader, "Delete ALL tasks?", a.out) {
		return nil
	}
	if err := a.reconciler.DeleteAll(ctx); err != nil {
		a.printErr(err)
		return err
	}
	return nil
}

// SetFilter persists the view filter.
func (a *App) SetFilter(ctx context.Context) error {
	raw, err := GetSimpleText(a.reader, "Filter (all/done/undone)", a.out)
	if err != nil {
		return err
	}
	if err := storage.SaveFilter(ctx, a.store, models.ParseFilter(raw)); err != nil {
		a.printErr(err)
		return err
	}
	return nil
}

// GoOnline creates a remote identity from the local collection. The PIN is
// displayed exactly once and cannot be recovered later.
func (a *App) GoOnline(ctx context.Context) error {
	userID, pin, err := a.reconciler.GoOnline(ctx)
	if err != nil {
		a.printErr(err)
		return err
	}
	fmt.Fprintf(a.out, "Your user id: %d\n", userID)
	fmt.Fprintf(a.out, "Your PIN: %s — write it down, it will not be shown again.\n", pin)
	return nil
}

// Login fetches the task set of an existing identity, replacing the local
// collection. Destructive, so it asks first.
func (a *App) Login(ctx context.Context) error {
	raw, err := GetSimpleText(a.reader, "User id", a.out)
	if err != nil {
		return err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		a.printErr(fmt.Errorf("invalid user id %q", raw))
		return err
	}

	pin, err := GetPIN(a.out)
	if err != nil {
		return err
	}
	if len(pin) != cryptox.PINLength {
		a.printErr(fmt.Errorf("the PIN is %d digits", cryptox.PINLength))
		return nil
	}

	if !GetConfirm(a.reader, "Logging in replaces your local tasks with the remote set. Continue?", a.out) {
		return nil
	}

	// Drop any watch for the previous identity so its feed cannot keep
	// mutating the collection after the switch.
	a.listener.UnsubscribeAll()
	if err := a.reconciler.Login(ctx, userID, pin); err != nil {
		a.printErr(err)
		return err
	}
	fmt.Fprintln(a.out, "Logged in, tasks downloaded.")
	return nil
}

// Pull re-downloads the remote set for the active session.
func (a *App) Pull(ctx context.Context) error {
	if err := a.reconciler.Refresh(ctx); err != nil {
		a.printErr(err)
		return err
	}
	fmt.Fprintln(a.out, "Tasks refreshed.")
	return nil
}

// Logout goes offline: credentials are cleared, local tasks are kept.
func (a *App) Logout(ctx context.Context) error {
	a.listener.UnsubscribeAll()
	if err := a.reconciler.GoOffline(ctx); err != nil {
		a.printErr(err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out. Local tasks kept.")
	return nil
}

// Retry replays the last failed push.
func (a *App) Retry(ctx context.Context) error {
	if err := a.reconciler.Retry(ctx); err != nil {
		a.printErr(err)
		return err
	}
	return nil
}

// DeleteUser deletes the identity and all of its tasks, remotely and
// locally.
func (a *App) DeleteUser(ctx context.Context) error {
	if !GetConfirm(a.reader, "Delete your account and ALL tasks everywhere?", a.out) {
		return nil
	}
	a.listener.UnsubscribeAll()
	if err := a.reconciler.DeleteIdentity(ctx); err != nil {
		a.printErr(err)
		return err
	}
	fmt.Fprintln(a.out, "Account deleted.")
	return nil
}

// Watch subscribes to the realtime change feed for the active session.
func (a *App) Watch(ctx context.Context) error {
	session := a.reconciler.Session()
	if session == nil {
		a.printErr(fmt.Errorf("log in first"))
		return nil
	}
	if a.listener.Active(session.UserID) {
		fmt.Fprintln(a.out, "Already watching.")
		return nil
	}

	_, err := a.listener.Subscribe(ctx, session.UserID, func(event *models.ChangeEvent) {
		if err := a.reconciler.ApplyRemote(ctx, event); err != nil {
			a.log.Error(ctx, "failed to apply remote change", "error", err)
		}
	})
	if err != nil {
		a.printErr(err)
		return err
	}
	fmt.Fprintln(a.out, "Watching for remote changes.")
	return nil
}
