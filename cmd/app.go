package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/Tiliavir/boat-time-tracker/internal/config"
	"github.com/Tiliavir/boat-time-tracker/internal/logger"
	"github.com/Tiliavir/boat-time-tracker/internal/mirror"
	"github.com/Tiliavir/boat-time-tracker/internal/secret"
	"github.com/Tiliavir/boat-time-tracker/internal/storage"
	"github.com/Tiliavir/boat-time-tracker/internal/tracker"
)

// lockWait bounds how long a command waits for another btt process.
const lockWait = 5 * time.Second

// app bundles what a command needs: configuration, the open store and the
// tracker wired to the mirror.
type app struct {
	cfg   config.Config
	base  string
	store storage.Store
	tr    *tracker.Tracker
	lock  *storage.Lock
}

// openApp loads config, opens the store and restores the tracker. With
// exclusive set the state lock is held until close, so commands that change
// state run one at a time across processes.
func openApp(ctx context.Context, exclusive bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	base, err := storage.BaseDir()
	if err != nil {
		return nil, err
	}

	var lock *storage.Lock
	if exclusive {
		lctx, cancel := context.WithTimeout(ctx, lockWait)
		lock, err = storage.AcquireLock(lctx, storage.LockPath(base))
		cancel()
		if err != nil {
			return nil, err
		}
	}

	store, err := storage.Open(cfg.Storage.Backend, base, cfg.Storage.Path)
	if err != nil {
		lock.Release()
		return nil, err
	}

	client, err := newMirrorClient(ctx, cfg, base)
	if err != nil {
		store.Close()
		lock.Release()
		return nil, err
	}
	tr, err := tracker.Open(store, client, tracker.Options{
		Logger:         logger.With("tracker"),
		SoftTimeout:    cfg.Mirror.Timeout(),
		LegacyCombined: cfg.Mirror.LegacyCombined,
	})
	if err != nil {
		store.Close()
		lock.Release()
		return nil, err
	}
	return &app{cfg: cfg, base: base, store: store, tr: tr, lock: lock}, nil
}

// close waits for pending notifications, closes the store and releases
// the state lock.
func (a *app) close() {
	a.tr.Close()
	if err := a.store.Close(); err != nil {
		logger.Logger.Error("closing store", "err", err)
	}
	if err := a.lock.Release(); err != nil {
		logger.Logger.Error("releasing state lock", "err", err)
	}
}

func authConfig(cfg config.Config, base string) mirror.AuthConfig {
	return mirror.AuthConfig{
		ClientID:     cfg.Mirror.Auth.ClientID,
		ClientSecret: cfg.Mirror.Auth.ClientSecret,
		TokenPath:    mirror.TokenPathIn(base),
	}
}

// newMirrorClient builds the remote mirror from config. Without a URL the
// client is a no-op.
func newMirrorClient(ctx context.Context, cfg config.Config, base string) (*mirror.Client, error) {
	if cfg.Mirror.URL == "" {
		return mirror.New(mirror.Options{Logger: logger.With("mirror")}), nil
	}

	hc, err := mirror.HTTPClient(ctx, authConfig(cfg, base), &http.Client{Timeout: cfg.Mirror.Timeout()})
	if err != nil {
		return nil, err
	}
	transport, err := mirror.NewTransport(cfg.Mirror.Transport, hc, cfg.Mirror.ProxyURL)
	if err != nil {
		return nil, err
	}
	return mirror.New(mirror.Options{
		URL:       cfg.Mirror.URL,
		Token:     secret.Resolve(os.Getenv("BTT_MIRROR_TOKEN"), cfg.Mirror.Token),
		Transport: transport,
		Ack:       mirror.AckTransportFor(transport, hc),
		Timeout:   cfg.Mirror.Timeout(),
		Logger:    logger.With("mirror"),
	}), nil
}

// userErrors are mistakes the user can fix by calling differently.
var userErrors = []error{
	tracker.ErrEmptyResource,
	tracker.ErrEmptyDescription,
	tracker.ErrNoActiveEntry,
	tracker.ErrEntryActive,
	tracker.ErrNoDaySession,
	tracker.ErrDayNotEnded,
	tracker.ErrEntryChanged,
	tracker.ErrDayChanged,
	mirror.ErrNotLoggedIn,
	storage.ErrLocked,
	huh.ErrUserAborted,
}

// exitCode maps err to 1 for user errors and remote failures the user can
// retry, 2 for storage and other IO failures.
func exitCode(err error) int {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return 1
		}
	}
	var merr *tracker.MirrorError
	if errors.As(err, &merr) {
		return 1
	}
	return 2
}

// fail prints err and exits with its code.
func fail(err error) {
	logger.Logger.Error("command failed", "err", err)
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCode(err))
}

// mustOpen opens the app holding the state lock, or exits.
func mustOpen(ctx context.Context) *app {
	a, err := openApp(ctx, true)
	if err != nil {
		fail(err)
	}
	return a
}

// mustOpenReader opens the app without the lock for commands that only
// read state, or exits.
func mustOpenReader(ctx context.Context) *app {
	a, err := openApp(ctx, false)
	if err != nil {
		fail(err)
	}
	return a
}
