package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/govpulse/internal/config"
	"github.com/TobiSchelling/govpulse/internal/database"
	"github.com/TobiSchelling/govpulse/internal/events"
	"github.com/TobiSchelling/govpulse/internal/logging"
	"github.com/TobiSchelling/govpulse/internal/metrics"
	"github.com/TobiSchelling/govpulse/internal/pipeline"
	"github.com/TobiSchelling/govpulse/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	envFile    string
	cfg        *config.Config
)

// v carries flag and GOVPULSE_* environment overrides.
var v = config.NewViper()

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "govpulse",
	Short:        "Sentiment reports for government service feedback",
	Long:         "govpulse classifies citizen feedback on public service offices and turns it into sentiment reports.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return setupLogging(config.Default())
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg.ApplyOverrides(v)
		return setupLogging(cfg)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVarP(&configPath, "config", "c", "", "Path to config file")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a .env file with API keys")
	flags.String("log-format", "", "Log format: text or json")
	_ = v.BindPFlag("logging.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(officesCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func setupLogging(c *config.Config) error {
	if err := logging.Setup(c.Logging.Level, c.Logging.Format); err != nil {
		logrus.WithError(err).Warn("Invalid log level; using info")
	}
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("govpulse", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/govpulse/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the LLM provider, rate limits and event publishing.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n", database.GetToday())
		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Printf("Offices: %d\n", stats.Offices)
		fmt.Println("\nFeedback:")
		fmt.Printf("  Total received: %d\n", stats.Feedback)
		fmt.Printf("  Classified: %d\n", stats.Classified)
		fmt.Printf("  Pending classification: %d\n", stats.Unclassified)
		fmt.Println("\nReports:")
		fmt.Printf("  Generated: %d\n", stats.Reports)
		fmt.Printf("  Active schedules: %d\n", stats.ActiveSchedules)
		fmt.Printf("\nReport generator: %s\n", generatorLabel(cfg.Summarization.Provider))
		return nil
	},
}

func generatorLabel(provider string) string {
	if provider == "" || provider == "none" {
		return "templates"
	}
	return provider + " (templates as fallback)"
}

// --- run command ---

var (
	dryRun    bool
	runPeriod string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify pending feedback and compose due reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		if runPeriod != "" {
			if _, _, err := database.ParsePeriod(runPeriod); err != nil {
				return err
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pub := openPublisher()
		defer pub.Close()

		svc, err := pipeline.NewServices(cfg, db, pub, nil)
		if err != nil {
			return err
		}
		pipe := pipeline.New(db, svc)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(runPeriod)
		} else {
			result = pipe.Run(cmd.Context(), runPeriod)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'govpulse serve' to view the reports.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().StringVar(&runPeriod, "period", "", "Also compose reports for every office over this period (YYYY-MM-DD or start..end)")
}

// --- serve command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server and the report scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pub := openPublisher()
		defer pub.Close()

		svc, err := pipeline.NewServices(cfg, db, pub, metrics.New())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := svc.Runner.Start(ctx, cfg.Schedule.Check); err != nil {
			return err
		}
		defer svc.Runner.Stop()

		srv, err := server.New(db, svc, server.Options{
			RateLimit: cfg.Server.RateLimit,
			RateBurst: cfg.Server.RateBurst,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Starting server at http://localhost:%d\n", cfg.Server.Port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, cfg.Server.Port)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8000, "Port to run server on")
	_ = v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

// openPublisher connects to the configured AMQP broker. Event publishing is
// optional, so a failed connection only disables it.
func openPublisher() events.Publisher {
	if cfg.Events.AMQPURL == "" {
		return events.NopPublisher{}
	}
	pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		logrus.WithError(err).Warn("Event publishing disabled")
		return events.NopPublisher{}
	}
	logrus.WithField("exchange", cfg.Events.Exchange).Info("Publishing feedback events")
	return pub
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "govpulse.db")
	return database.Open(dbPath)
}

// lastWeek returns the period covering the seven days ending today (UTC).
func lastWeek() string {
	today := time.Now().UTC()
	return database.MakePeriodID(today.AddDate(0, 0, -6).Format("2006-01-02"), today.Format("2006-01-02"))
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, cfg.Summarization.Timeout+30*time.Second)
}
