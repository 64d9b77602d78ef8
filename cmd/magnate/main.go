package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"magnate/internal/config"
	"magnate/internal/game"
	"magnate/internal/persist"
	"magnate/internal/remote"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadClientFromEnv()

	root := &cobra.Command{
		Use:          "magnate",
		Short:        "Magnate idle-economy game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newPlayCmd(cfg),
		newLinkCmd(cfg),
		newUnlinkCmd(),
		newRestoreCmd(cfg),
		newResetCmd(cfg),
		newTopCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadCatalog(cfg config.ClientConfig) (*game.Catalog, error) {
	if cfg.CatalogPath != "" {
		return game.LoadCatalog(cfg.CatalogPath)
	}
	return game.DefaultCatalog(), nil
}

func saveDBPath(cfg config.ClientConfig) (string, error) {
	dir := cfg.DataDir
	if dir == "" {
		var err error
		dir, err = remote.BaseDir()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "save.db"), nil
}

// sessionRemote returns a sync client when the player has linked an
// account, nil otherwise. Playing unlinked is fully supported; the game
// then persists locally only.
func sessionRemote(cfg config.ClientConfig) persist.RemoteStore {
	sess, err := remote.LoadSession()
	if err != nil {
		return nil
	}
	return remote.NewClient(cfg.SyncBaseURL, sess.Token, cfg.RemoteTimeout)
}

func newPlayCmd(cfg config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Run an interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			path, err := saveDBPath(cfg)
			if err != nil {
				return err
			}
			store, err := persist.OpenLocal(path)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := game.NewEngine(cat, nil, nil, logger)
			mgr := persist.NewManager(engine, store, sessionRemote(cfg), cfg.SnapshotEvery, cfg.RemoteTimeout, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := mgr.Bootstrap(ctx); err != nil {
				return err
			}

			sched := game.NewScheduler(engine, cfg.TickEvery, logger)
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				sched.Run(ctx)
			}()
			go func() {
				defer wg.Done()
				mgr.Run(ctx)
			}()

			runConsole(ctx, stop, engine)
			wg.Wait()
			return nil
		},
	}
}

func newLinkCmd(cfg config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "link <handle>",
		Short: "Register with the sync service and save the device token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := remote.NewClient(cfg.SyncBaseURL, "", cfg.RemoteTimeout)
			res, err := client.Register(ctx, args[0])
			if err != nil {
				return err
			}
			if err := remote.SaveSession(remote.Session{
				PlayerID: res.PlayerID,
				Handle:   args[0],
				Token:    res.Token,
			}); err != nil {
				return err
			}
			printSuccess("Linked as %s. Saves will sync on the snapshot cadence.", args[0])
			return nil
		},
	}
}

func newUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink",
		Short: "Forget the stored sync session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := remote.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session cleared. Local saves are untouched.")
			return nil
		},
	}
}

func newRestoreCmd(cfg config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Adopt the remote save, replacing local progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			remoteStore := sessionRemote(cfg)
			if remoteStore == nil {
				return remote.ErrNotLinked
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			path, err := saveDBPath(cfg)
			if err != nil {
				return err
			}
			store, err := persist.OpenLocal(path)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := game.NewEngine(cat, nil, nil, logger)
			mgr := persist.NewManager(engine, store, remoteStore, cfg.SnapshotEvery, cfg.RemoteTimeout, logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := mgr.Restore(ctx); err != nil {
				if err == persist.ErrNoRemoteSave {
					printWarn("No remote save found.")
					return nil
				}
				return err
			}
			view := engine.Snapshot()
			printSuccess("Restored: level %d, %s coins.", view.Level, fmtCoins(view.BalanceMicros))
			return nil
		},
	}
}

func newResetCmd(cfg config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Wipe local progress back to the cold default",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			cat, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			path, err := saveDBPath(cfg)
			if err != nil {
				return err
			}
			store, err := persist.OpenLocal(path)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := game.NewEngine(cat, nil, nil, logger)
			mgr := persist.NewManager(engine, store, nil, cfg.SnapshotEvery, cfg.RemoteTimeout, logger)
			if err := mgr.Reset(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Progress reset.")
			return nil
		},
	}
}

func newTopCmd(cfg config.ClientConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the sync leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := remote.NewClient(cfg.SyncBaseURL, "", cfg.RemoteTimeout)
			rows, err := client.Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			printLeaderboard(rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows")
	return cmd
}
