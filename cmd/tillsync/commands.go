package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vipul43/tillsync/internal/api"
	"github.com/vipul43/tillsync/internal/config"
	"github.com/vipul43/tillsync/internal/database"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/repository"
)

// rootOptions holds global flags for all commands
type rootOptions struct {
	org string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tillsync",
		Short:         "Offline-first sync daemon for the point of sale cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.org, "org", "", "organization slug (defaults to SYNC_ORGANIZATION)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newPushCommand(opts))
	cmd.AddCommand(newPullCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newRequeueCommand(opts))
	cmd.AddCommand(newResyncCommand(opts))
	cmd.AddCommand(newMigrateCommand())

	return cmd
}

// loadApp reads configuration and applies the --org override
func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.org != "" {
		cfg.Organization = opts.org
	}
	return newApp(cfg)
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the push/pull loops and the status API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(a)
		},
	}
}

func run(a *app) error {
	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start watcher in goroutine
	errChan := make(chan error, 2)
	go func() {
		errChan <- a.watcher.Start(ctx)
	}()

	var srv *http.Server
	if a.cfg.StatusAddr != "" {
		srv = &http.Server{
			Addr: a.cfg.StatusAddr,
			Handler: api.NewServer(api.Options{
				Runner:            a.watcher,
				Cache:             a.orchestrator,
				Metadata:          a.meta,
				Operations:        a.ops,
				Gatherer:          a.registry,
				Organization:      a.cfg.Organization,
				OrganizationID:    a.cfg.OrgID,
				Records:           a.records,
				MaxFailedAttempts: a.cfg.MaxFailedAttempts,
			}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("Status API listening on %s", a.cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("status API: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("Shutdown signal received")
		cancel()

		// Wait for graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if srv != nil {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Status API shutdown error: %v", err)
			}
		}

		select {
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded")
		case err := <-errChan:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Watcher error: %v", err)
			}
		}

		log.Println("Application stopped")
		return nil

	case err := <-errChan:
		return err
	}
}

func newPushCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push pending operations once (every organization unless --org is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := a.orchestrator.Push(cmd.Context(), opts.org)
			if perr := printJSON(cmd.OutOrStdout(), reports); perr != nil {
				return perr
			}
			return err
		},
	}
}

func newPullCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull every entity type once for the organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Organization == "" {
				return errors.New("an organization is required: pass --org or set SYNC_ORGANIZATION")
			}
			reports, err := a.orchestrator.PullAllInParallel(cmd.Context(), a.cfg.Organization)
			if perr := printJSON(cmd.OutOrStdout(), reports); perr != nil {
				return perr
			}
			return err
		},
	}
}

type statusOutput struct {
	Metadata   []models.SyncMetadata       `json:"metadata"`
	Cached     map[models.EntityType]bool  `json:"cached"`
	Operations []repository.OperationStats `json:"operations"`
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync metadata and pending operation counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			metadata, err := a.meta.List(ctx)
			if err != nil {
				return err
			}
			cached, err := a.orchestrator.CachedDataState(ctx)
			if err != nil {
				return err
			}
			stats, err := a.ops.Stats(ctx, a.cfg.MaxFailedAttempts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), statusOutput{Metadata: metadata, Cached: cached, Operations: stats})
		},
	}
}

func newRequeueCommand(opts *rootOptions) *cobra.Command {
	var entity string

	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Re-arm operations that exceeded the retry limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ops.Requeue(cmd.Context(), models.EntityType(entity), a.cfg.MaxFailedAttempts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d operation(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "entity type to requeue (default all)")

	return cmd
}

func newResyncCommand(opts *rootOptions) *cobra.Command {
	var entity string
	var pull bool

	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Forget pull watermarks so the next pull is a full sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			entities := a.orchestrator.Entities()
			if entity != "" {
				entities = []models.EntityType{models.EntityType(entity)}
			}
			for _, e := range entities {
				if err := a.meta.Reset(ctx, e); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d entity type(s)\n", len(entities))

			if !pull {
				return nil
			}
			if a.cfg.Organization == "" {
				return errors.New("an organization is required: pass --org or set SYNC_ORGANIZATION")
			}
			reports, err := a.orchestrator.PullAllInParallel(ctx, a.cfg.Organization)
			if perr := printJSON(cmd.OutOrStdout(), reports); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "entity type to reset (default all)")
	cmd.Flags().BoolVar(&pull, "pull", false, "pull right after the reset")

	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogging(cfg)

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			return database.Close(db)
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
