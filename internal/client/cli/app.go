package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/pintask/internal/client/config"
	"github.com/dmitrijs2005/pintask/internal/client/creds"
	"github.com/dmitrijs2005/pintask/internal/client/gateway"
	"github.com/dmitrijs2005/pintask/internal/client/realtime"
	"github.com/dmitrijs2005/pintask/internal/client/storage"
	"github.com/dmitrijs2005/pintask/internal/client/sync"
	"github.com/dmitrijs2005/pintask/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the client together: local store, credential manager, REST
// gateway, realtime listener, and the sync reconciler, all threaded
// explicitly rather than held in package globals.
type App struct {
	config     *config.Config
	store      *storage.SQLiteStore
	reconciler *sync.Reconciler
	listener   *realtime.Listener
	log        logging.Logger

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store := storage.NewSQLiteStore()
	if err := store.Open(ctx, cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("error initializing local store: %w", err)
	}

	gw := gateway.NewRESTGateway(cfg.BaseURL, cfg.RequestTimeout, cfg.RetryInterval)

	reconciler := sync.NewReconciler(sync.SyncContext{
		Store:   store,
		IDs:     store,
		Creds:   creds.NewManager(store),
		Gateway: gw,
		Log:     log,
	})
	if err := reconciler.Start(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		config:     cfg,
		store:      store,
		reconciler: reconciler,
		listener:   realtime.NewListener(cfg.ResolveRealtimeURL(), log),
		log:        log,
		reader:     bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) status() string {
	state := a.reconciler.State()
	if session := a.reconciler.Session(); session != nil {
		return fmt.Sprintf("%s, user %d", state, session.UserID)
	}
	return state.String()
}

func (a *App) isOnline() bool {
	return a.reconciler.Session() != nil
}

func (a *App) Close() {
	a.listener.UnsubscribeAll()
	_ = a.store.Close()
}
