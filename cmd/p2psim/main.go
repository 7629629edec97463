package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/opd-ai/wifip2p/config"
	"github.com/opd-ai/wifip2p/factory"
	"github.com/opd-ai/wifip2p/metrics"
	"github.com/opd-ai/wifip2p/simulation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CLIConfig holds the flags of the run command.
type CLIConfig struct {
	configFile  string
	nodes       int
	cycles      int64
	seed        int64
	groups      int
	parallelism int
	metricsAddr string
	logLevel    string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "p2psim",
		Short: "Simulate proximity tracking for Wi-Fi Direct nodes",
		Long: `p2psim moves simulated Wi-Fi Direct devices around a field and runs a
proximity tracker on each of them: peers-changed notifications, service
advertisement to newly seen peers, invitation expiry and eviction of group
members that leave radio range.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCommand(), newConfigCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var cli CLIConfig
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation and print a summary",
		Example: `  p2psim run
  p2psim run --config sim.toml --cycles 5000
  p2psim run --nodes 200 --groups 20 --parallelism 8 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(&cli, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runSimulation(ctx, cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cli.configFile, "config", "c", "", "TOML configuration file")
	flags.IntVar(&cli.nodes, "nodes", 0, "number of simulated nodes")
	flags.Int64Var(&cli.cycles, "cycles", 0, "number of cycles to run")
	flags.Int64Var(&cli.seed, "seed", 0, "random seed")
	flags.IntVar(&cli.groups, "groups", 0, "groups formed from initial proximity")
	flags.IntVar(&cli.parallelism, "parallelism", 0, "trackers advanced concurrently")
	flags.StringVar(&cli.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.StringVar(&cli.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Sample(cmd.OutOrStdout())
		},
	}
}

// buildConfig loads the configuration file, if any, and applies the flags the
// user set explicitly.
func buildConfig(cli *CLIConfig, changed func(name string) bool) (*config.Config, error) {
	cfg := config.Default()
	if cli.configFile != "" {
		loaded, err := config.Load(cli.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyEnvironment(cfg)

	if changed("nodes") {
		cfg.Simulation.Nodes = cli.nodes
	}
	if changed("cycles") {
		cfg.Simulation.Cycles = cli.cycles
	}
	if changed("seed") {
		cfg.Simulation.Seed = cli.seed
	}
	if changed("groups") {
		cfg.Simulation.Groups = cli.groups
	}
	if changed("parallelism") {
		cfg.Simulation.Parallelism = cli.parallelism
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = cli.metricsAddr
	}
	if changed("log-level") {
		cfg.Logging.Level = cli.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironment lets the WIFIP2P_* variables override the tracker settings
// of the configuration file.
func applyEnvironment(cfg *config.Config) {
	tc := cfg.TrackerConfig()
	factory.ApplyEnvironmentOverrides(&tc)
	cfg.Tracker.InvitationTimeout = tc.InvitationTimeout
	cfg.Channels.Primary.ID = uint8(tc.PrimaryChannel)
	cfg.Channels.Service.ID = uint8(tc.ServiceChannel)
	cfg.Channels.Management.ID = uint8(tc.ManagementChannel)
}

// runSimulation runs cfg to completion or until ctx is cancelled and writes
// the summary to out.
func runSimulation(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := cfg.Logging.Apply(); err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	if cfg.Metrics.Addr != "" {
		server := serveMetrics(cfg.Metrics.Addr, recorder)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	engine, err := simulation.NewEngine(cfg, simulation.WithRecorder(recorder))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	if _, err := engine.SeedGroups(cfg.Simulation.Groups); err != nil {
		return fmt.Errorf("seed groups: %w", err)
	}

	start := time.Now()
	runErr := engine.Run(ctx, cfg.Simulation.Cycles)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		logrus.WithFields(logrus.Fields{
			"function": "runSimulation",
			"cycle":    engine.Cycle(),
		}).Warn("Simulation interrupted")
	}

	printSummary(out, engine.Stats(), time.Since(start))
	return nil
}

func serveMetrics(addr string, recorder *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithFields(logrus.Fields{
				"function": "serveMetrics",
				"addr":     addr,
				"error":    err.Error(),
			}).Error("Metrics server stopped")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"function": "serveMetrics",
		"addr":     addr,
	}).Info("Serving metrics")
	return server
}

// printSummary writes a human readable summary of a run.
func printSummary(out io.Writer, s simulation.Stats, elapsed time.Duration) {
	fmt.Fprintf(out, "Simulation summary (%d cycles, %d nodes, %v)\n", s.Cycles, s.Nodes, elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  groups:              %d\n", s.Groups)
	fmt.Fprintf(out, "  connected/invited/available: %d/%d/%d\n", s.Connected, s.Invited, s.Available)
	fmt.Fprintf(out, "  events sent:         %d\n", s.Transport.Sent)
	fmt.Fprintf(out, "  events delivered:    %d\n", s.Transport.Delivered)
	fmt.Fprintf(out, "  events dropped:      %d\n", s.Transport.Dropped+s.Transport.Undeliverable)
	fmt.Fprintf(out, "  peer refreshes:      %d\n", s.PeerRefreshes)
	fmt.Fprintf(out, "  services discovered: %d\n", s.ServicesDiscovered)
	fmt.Fprintf(out, "  invitation timeouts: %d\n", s.InvitationTimeouts)
	fmt.Fprintf(out, "  evictions:           %d (cancel sent %d, applied %d)\n", s.Evictions, s.CancelsSent, s.CancelsApplied)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
