package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-recon-service/internal/api"
	"payment-recon-service/internal/recon"
	"payment-recon-service/internal/settlement"
	"payment-recon-service/internal/store"
)

var (
	listenAddr string
	serveDSN   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation HTTP API",
	Long: `Serve exposes reconciliation over HTTP. POST cycle records to
/v1/reconciliations and fetch stored runs from /v1/reconciliations/:id.

Run persistence needs a Postgres DSN; without one the API still reconciles
but cannot store or list runs.

Examples:
  recon serve --listen :8080
  recon serve --listen :8080 --database-url postgres://localhost/recon?sslmode=disable`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveDSN, "database-url", "", "Postgres DSN for run persistence (optional)")

	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("serve-database-url", serveCmd.Flags().Lookup("database-url"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	engine, err := recon.NewReconciler(recon.DefaultConfig(), log)
	if err != nil {
		return err
	}
	calc, err := settlement.NewCalculator(nil, log)
	if err != nil {
		return err
	}

	var runs *store.Store
	if dsn := viper.GetString("serve-database-url"); dsn != "" {
		runs, err = store.Open(ctx, dsn, log)
		if err != nil {
			return err
		}
		defer runs.Close()
		if err := runs.Migrate(ctx); err != nil {
			return err
		}
	}

	addr := viper.GetString("listen")
	if addr == "" {
		addr = listenAddr
	}

	server := &http.Server{
		Addr:    addr,
		Handler: api.New(engine, calc, runs, log).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("HTTP API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
