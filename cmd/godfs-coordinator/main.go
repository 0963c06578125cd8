// Command godfs-coordinator runs the metadata coordinator daemon.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hrcamilo11/godfs/internal/config"
	"github.com/hrcamilo11/godfs/internal/events"
	"github.com/hrcamilo11/godfs/internal/log"
	"github.com/hrcamilo11/godfs/internal/metrics"
	"github.com/hrcamilo11/godfs/internal/rpctransport"
	"github.com/hrcamilo11/godfs/internal/wal"
	"github.com/hrcamilo11/godfs/pkg/coordinator"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "godfs-coordinator",
	Short: "godfs coordinator — namespace, placement and liveness authority",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)
	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coordinator RPC and metrics servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		listenAddr, _ := cmd.Flags().GetString("listen")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		walPath, _ := cmd.Flags().GetString("wal-path")
		replication, _ := cmd.Flags().GetInt("replication-factor")

		cfg, err := config.LoadCoordinator(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		if metricsAddr != "" {
			cfg.MetricsAddr = metricsAddr
		}
		if walPath != "" {
			cfg.WALPath = walPath
		}
		if replication > 0 {
			cfg.ReplicationFactor = replication
		}

		var w *wal.WAL
		if cfg.WALPath != "" {
			w, err = wal.Open(cfg.WALPath)
			if err != nil {
				return fmt.Errorf("opening WAL: %w", err)
			}
			defer w.Close()
		}

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		coordCfg := coordinator.Config{
			BlockSize:         cfg.BlockSize,
			ReplicationFactor: cfg.ReplicationFactor,
			DeadInterval:      cfg.DeadInterval,
			ScanInterval:      cfg.ScanInterval,
		}
		c := coordinator.New(coordCfg, w, broker)
		if err := c.Replay(); err != nil {
			return fmt.Errorf("replaying WAL: %w", err)
		}
		c.StartReReplication()
		defer c.Shutdown()

		listener, err := rpctransport.ListenAndServe(cfg.ListenAddr, "Server", coordinator.NewServer(c))
		if err != nil {
			return fmt.Errorf("starting RPC server: %w", err)
		}
		defer listener.Close()
		log.Logger.Info().Str("addr", cfg.ListenAddr).Msg("coordinator RPC server listening")

		go func() {
			log.Logger.Info().Str("addr", cfg.MetricsAddr).Msg("coordinator metrics server listening")
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Logger.Info().Msg("coordinator shutting down")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file")
	serveCmd.Flags().String("listen", "", "RPC listen address (overrides config)")
	serveCmd.Flags().String("metrics-addr", "", "Metrics HTTP listen address (overrides config)")
	serveCmd.Flags().String("wal-path", "", "Path to a bbolt WAL file (overrides config; no WAL when neither sets one)")
	serveCmd.Flags().Int("replication-factor", 0, "Replication factor R (overrides config; 0 keeps config/default)")
}
