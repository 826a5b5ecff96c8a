package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kortfolk/chronicle/internal/executor"
	"github.com/kortfolk/chronicle/internal/extract"
	"github.com/kortfolk/chronicle/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serves the store, briefing, audit trail and proposal queue over HTTP.
The server runs until interrupted and shuts down gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Bool("allow-all", false, "allow all CORS origins")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	allowAll, _ := cmd.Flags().GetBool("allow-all")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if port == 0 {
		port = cfg.Server.Port
	}

	deps := server.Deps{
		Store:     store,
		Audit:     auditStore(cfg),
		Pending:   extract.NewPendingQueue(cfg.DataDir),
		Proposals: proposalQueue(cfg),
		Projector: newProjector(cfg, store),
	}
	if ext := boardExternal(cfg); ext != nil {
		deps.Executor = executor.New(ext, deps.Audit, deps.Proposals)
	}

	srv := server.New(server.Config{Port: port, AllowAll: allowAll}, deps)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stop:
		fmt.Fprintln(os.Stderr, "shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
