package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/agentcache/internal/observability"
	"github.com/hrygo/agentcache/internal/profile"
	"github.com/hrygo/agentcache/plugin/ai/similarity"
	"github.com/hrygo/agentcache/server"
	"github.com/hrygo/agentcache/store"
	"github.com/hrygo/agentcache/store/db"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:   "agentcache",
		Short: "A knowledge cache that lets agents reuse results of semantically equivalent queries.",
		Long: `agentcache stores the results agents produce (search results, insights,
generated answers) and serves them back for queries that are the same up to
wording, using an exact normalized hash, composite text similarity and,
optionally, embedding nearest neighbours.

Examples:
  # Start the API with the default SQLite store
  agentcache serve --data ./data

  # Score two queries
  agentcache match "How do I deploy to AWS?" "how to deploy on aws"

  # Find the closest line of a file
  agentcache match --file queries.txt "deploy kubernetes cluster"`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the knowledge cache API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML/JSON/TOML config file")
	rootCmd.PersistentFlags().Float64("threshold", similarity.DefaultThreshold, "similarity threshold in [0,1]")
	bindFlag(rootCmd, "similarity.threshold", "threshold")

	serveCmd.Flags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	serveCmd.Flags().String("addr", "", "address of server")
	serveCmd.Flags().Int("port", 8081, "port of server")
	serveCmd.Flags().String("data", "", "data directory")
	serveCmd.Flags().String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	serveCmd.Flags().String("dsn", "", "database source name(aka. DSN)")
	serveCmd.Flags().String("redis-url", "", "redis URL of the shared L2 tier, e.g. redis://localhost:6379/0")
	serveCmd.Flags().String("jwt-secret", "", "HS256 secret required on /api/v1 when set")
	for key, flag := range map[string]string{
		"mode":       "mode",
		"addr":       "addr",
		"port":       "port",
		"data":       "data",
		"driver":     "driver",
		"dsn":        "dsn",
		"redis_url":  "redis-url",
		"jwt_secret": "jwt-secret",
	} {
		bindFlag(serveCmd, key, flag)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newMatchCmd())
}

// bindFlag binds a flag of cmd to key only when the flag is set, so an unset
// flag never shadows the config file or environment.
func bindFlag(cmd *cobra.Command, key, flag string) {
	cobra.OnInitialize(func() {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(flag)
		}
		if f != nil && f.Changed {
			if err := viper.BindPFlag(key, f); err != nil {
				panic(err)
			}
		}
	})
}

func loadProfile() (*profile.Profile, error) {
	p, err := profile.Load(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func runServe(ctx context.Context) error {
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(os.Stderr, instanceProfile.IsDev())
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		slog.Error("failed to create db driver", slog.String("error", err.Error()))
		return err
	}

	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		slog.Error("failed to migrate", slog.String("error", err.Error()))
		_ = storeInstance.Close()
		return err
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance, logger)
	if err != nil {
		slog.Error("failed to create server", slog.String("error", err.Error()))
		_ = storeInstance.Close()
		return err
	}

	c := make(chan os.Signal, 1)
	// Trigger graceful shutdown on SIGINT or SIGTERM.
	// The default signal sent by the `kill` command is SIGTERM,
	// which is taken as the graceful shutdown signal for many systems, eg., Kubernetes, Gunicorn.
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	if err := s.Start(ctx); err != nil {
		slog.Error("failed to start server", slog.String("error", err.Error()))
		s.Shutdown(ctx)
		return err
	}

	printGreetings(instanceProfile)

	<-c
	s.Shutdown(context.Background())
	return nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("agentcache %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprintf(os.Stderr, "Development mode is enabled\n")
		if p.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", p.DSN)
		}
	}
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
		fmt.Printf("Access your cache at: http://localhost:%d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
		fmt.Printf("Access your cache at: http://%s:%d\n", p.Addr, p.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
