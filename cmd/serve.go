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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capsim/capsim/internal/api"
	"github.com/capsim/capsim/internal/audit"
	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/engine"
	"github.com/capsim/capsim/internal/service"
	"github.com/capsim/capsim/internal/validation"
)

// serveCmd runs the simulation API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capsim simulation server",
	Long: `Starts an HTTP server that evaluates simulation and explain requests
	against a loaded baseline policy set. The server only simulates, it never
	enforces decisions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := f.LoadAppConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		schema := cfg.BuildSchema()

		if f.PoliciesPath == "" {
			return fmt.Errorf("baseline policy file not specified (use --policies)")
		}
		doc, err := config.LoadPolicyDocument(f.PoliciesPath)
		if err != nil {
			return fmt.Errorf("loading baseline policies: %w", err)
		}
		baseline, err := validation.ValidatePolicies(doc.Name, doc.Policies, schema)
		if err != nil {
			return fmt.Errorf("validating baseline policies: %w", err)
		}
		log.Info().Msgf("Loaded baseline policy set %s", summarizeSet(doc))

		auditor, err := audit.Build(cfg.Audit)
		if err != nil {
			return fmt.Errorf("building auditor: %w", err)
		}
		defer func() {
			_ = auditor.Close()
		}()

		svc := service.NewSimulationService(schema, cfg.Simulation.Workers, auditor)
		manager := engine.NewManager(baseline)
		srv := api.NewServer(svc, manager, auditor)

		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().StringVarP(&f.PoliciesPath, "policies", "p", "", "Baseline policy set file")
	serveCmd.Flags().StringVar(&f.AppConfigPath, "config", "", "Application config file (schema, audit, defaults)")
}
