package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isOnline() bool
	Add(ctx context.Context) error
	List(ctx context.Context) error
	Toggle(ctx context.Context) error
	Edit(ctx context.Context) error
	Delete(ctx context.Context) error
	Clear(ctx context.Context) error
	SetFilter(ctx context.Context) error
	GoOnline(ctx context.Context) error
	Login(ctx context.Context) error
	Pull(ctx context.Context) error
	Logout(ctx context.Context) error
	Retry(ctx context.Context) error
	DeleteUser(ctx context.Context) error
	Watch(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the task CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always available:
//	  - help           — show available commands
//	  - add            — add a task
//	  - list           — list tasks through the active filter
//	  - done           — toggle a task's done flag
//	  - edit           — edit a task's title and description
//	  - del            — delete a task
//	  - clear          — delete all tasks
//	  - filter         — set the view filter (all/done/undone)
//	  - exit | quit    — leave the program
//
//	Offline only:
//	  - online         — create a remote identity from the local tasks
//	  - login          — download the tasks of an existing identity
//
//	Online only:
//	  - pull           — re-download the remote task set
//	  - watch          — follow the realtime change feed
//	  - retry          — replay the last failed push
//	  - logout         — go offline, keeping local tasks
//	  - deluser        — delete the identity and every task
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("task> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			printlnFn("Task commands: (a)dd, (l)ist, done, edit, del, clear, filter, exit")
			if a.isOnline() {
				printlnFn("Session commands: pull, watch, retry, logout, deluser")
			} else {
				printlnFn("Session commands: online, login")
			}

		case "a", "add":
			_ = a.Add(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "done", "toggle":
			_ = a.Toggle(ctx)

		case "edit":
			_ = a.Edit(ctx)

		case "del", "rm":
			_ = a.Delete(ctx)

		case "clear":
			_ = a.Clear(ctx)

		case "filter":
			_ = a.SetFilter(ctx)

		case "online":
			_ = a.GoOnline(ctx)

		case "login":
			_ = a.Login(ctx)

		case "pull":
			_ = a.Pull(ctx)

		case "watch":
			_ = a.Watch(ctx)

		case "retry":
			_ = a.Retry(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "deluser":
			_ = a.DeleteUser(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
