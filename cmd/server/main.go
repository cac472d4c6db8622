package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Skufu/dhanvantari/internal/analysis"
	"github.com/Skufu/dhanvantari/internal/config"
	"github.com/Skufu/dhanvantari/internal/llm"
	"github.com/Skufu/dhanvantari/internal/logging"
	"github.com/Skufu/dhanvantari/internal/patient"
	"github.com/Skufu/dhanvantari/internal/sample"
	"github.com/Skufu/dhanvantari/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dhanvantari",
		Short:        "Hospital patient analyzer",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(patientsCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(sampleCmd())

	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Inspect the loaded patient records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the loaded patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tAGE\tBLOOD PRESSURE")
			for _, rec := range env.store.All() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", rec.ID, rec.Name, rec.Age, rec.BloodPressure)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print one patient's raw data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			rec, err := env.store.Get(patient.ParseSelection(args[0]))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, f := range rec.Fields() {
				fmt.Fprintf(tw, "%s\t%s\n", f.Column, f.Value)
			}
			return tw.Flush()
		},
	})

	return cmd
}

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <id>",
		Short: "Print triage flags and the AI analysis for one patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := bootstrap(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			analyzer, err := env.analyzer()
			if err != nil {
				return err
			}
			report, err := analyzer.Analyze(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a CSV of fake patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, _ := cmd.Flags().GetInt("rows")
			seed, _ := cmd.Flags().GetUint64("seed")
			out, _ := cmd.Flags().GetString("out")
			if rows < 1 {
				return fmt.Errorf("--rows must be at least 1")
			}

			if out == "" || out == "-" {
				return sample.Generate(cmd.OutOrStdout(), rows, seed)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := sample.Generate(f, rows, seed); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().Int("rows", 50, "Number of patients to generate")
	cmd.Flags().Uint64("seed", 0, "Random seed, 0 picks one")
	cmd.Flags().String("out", "hospital_patient_data.csv", "Output path, - for stdout")
	return cmd
}

// environment is what every command needs: config, logger, patients and the
// optional database pool.
type environment struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
	store  *patient.Store
}

func bootstrap(ctx context.Context, logOut io.Writer) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	logger, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("config error: LOG_LEVEL: %w", err)
	}

	env := &environment{cfg: cfg, logger: logger}
	if cfg.EnableDB {
		env.pool, err = connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
	}

	if cfg.FromDatabase() {
		env.store, err = patient.LoadPostgres(ctx, env.pool, cfg.PatientTable)
	} else {
		env.store, err = patient.Open(ctx, cfg.PatientSource)
	}
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("load patients: %w", err)
	}

	logger.Info().
		Str("source", env.source()).
		Int("patients", env.store.Len()).
		Msg("patients loaded")

	return env, nil
}

func (e *environment) source() string {
	if e.cfg.FromDatabase() {
		return "postgres table " + e.cfg.PatientTable
	}
	return e.cfg.PatientSource
}

func (e *environment) analyzer() (*analysis.Analyzer, error) {
	completer, err := newCompleter(e.cfg)
	if err != nil {
		return nil, err
	}
	if e.cfg.LLM().APIKey == "" {
		e.logger.Warn().Msg("GROQ_API_KEY is not set; AI analysis will report an error")
	}
	return analysis.New(e.store, completer, e.logger), nil
}

func (e *environment) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func newCompleter(cfg *config.Config) (llm.Completer, error) {
	client := llm.NewClient(cfg.LLM(), &http.Client{})
	if cfg.AdviceCacheSize == 0 {
		return client, nil
	}
	return llm.NewCachingCompleter(cfg.AdviceCacheSize, cfg.AdviceCacheTTL, client)
}

func runServer(ctx context.Context) error {
	env, err := bootstrap(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer env.Close()

	gin.SetMode(env.cfg.GinMode)

	analyzer, err := env.analyzer()
	if err != nil {
		return err
	}

	// A nil *pgxpool.Pool must not become a non-nil HealthChecker.
	var db server.HealthChecker
	if env.pool != nil {
		db = env.pool
	}

	router := server.New(analyzer, db, env.source(), env.logger).Router()
	srv := server.HTTPServer(":"+env.cfg.Port, router, env.cfg.GroqTimeout)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	env.logger.Info().Str("port", env.cfg.Port).Str("model", env.cfg.GroqModel).Msg("server listening")
	return waitForShutdown(srv, env.logger, errCh)
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func waitForShutdown(srv *http.Server, logger zerolog.Logger, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

func printReport(w io.Writer, r analysis.Report) {
	fmt.Fprintf(w, "Patient:   %s, %d, %s\n", r.Patient.DisplayName(), r.Patient.Age, r.Patient.Gender)
	fmt.Fprintf(w, "Vitals vs average: heart rate %+.2f%%, blood oxygen %+.2f%%, sugar level %+.2f%%\n",
		r.Performance.HeartRateVsAvg, r.Performance.BloodOxygenVsAvg, r.Performance.SugarLevelVsAvg)
	if r.BMICategory != "" {
		fmt.Fprintf(w, "BMI:       %.1f (%s)\n", r.BMI, r.BMICategory)
	}
	if len(r.Symptoms) > 0 {
		fmt.Fprintf(w, "Symptoms:  %s\n", strings.Join(r.Symptoms, ", "))
	}
	fmt.Fprintf(w, "Triage:    %s (score %d)\n", r.Triage.RiskLevel, r.Triage.RiskScore)
	for _, issue := range r.Triage.Issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	fmt.Fprintln(w)
	if r.AdviceError != "" {
		fmt.Fprintln(w, r.AdviceError)
		return
	}
	fmt.Fprintln(w, r.Advice)
}
