// Command godfs-worker runs a storage node daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hrcamilo11/godfs/internal/config"
	"github.com/hrcamilo11/godfs/internal/log"
	"github.com/hrcamilo11/godfs/internal/rpctransport"
	"github.com/hrcamilo11/godfs/pkg/worker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "godfs-worker",
	Short: "godfs worker — block storage and replication node",
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
	Short: "Store blocks and report liveness to the coordinator",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		id, _ := cmd.Flags().GetString("id")
		listenAddr, _ := cmd.Flags().GetString("listen")
		advertiseAddr, _ := cmd.Flags().GetString("advertise")
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		cfg, err := config.LoadWorker(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if id != "" {
			cfg.ID = id
		}
		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}
		if advertiseAddr != "" {
			cfg.AdvertiseAddr = advertiseAddr
		}
		if coordinatorAddr != "" {
			cfg.CoordinatorAddr = coordinatorAddr
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if cfg.ID == "" {
			return fmt.Errorf("a worker id is required (--id or config)")
		}
		if cfg.CoordinatorAddr == "" {
			return fmt.Errorf("a coordinator address is required (--coordinator or config)")
		}

		w, err := worker.New(worker.Config{
			ID:                cfg.ID,
			DataDir:           cfg.DataDir,
			ListenAddr:        cfg.ListenAddr,
			AdvertiseAddr:     cfg.AdvertiseAddr,
			CoordinatorAddr:   cfg.CoordinatorAddr,
			HeartbeatInterval: cfg.HeartbeatInterval,
		})
		if err != nil {
			return fmt.Errorf("constructing worker: %w", err)
		}

		listener, err := rpctransport.ListenAndServe(cfg.ListenAddr, "WorkerServer", worker.NewServer(w))
		if err != nil {
			return fmt.Errorf("starting RPC server: %w", err)
		}
		defer listener.Close()
		if cfg.AdvertiseAddr == "" {
			w.SetAdvertiseAddr(listener.Addr().String())
		}

		if err := w.Register(); err != nil {
			return fmt.Errorf("registering with coordinator: %w", err)
		}
		w.StartHeartbeatLoop()
		defer w.Stop()

		log.Logger.Info().Str("id", cfg.ID).Str("addr", listener.Addr().String()).Msg("worker registered and serving")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Logger.Info().Msg("worker shutting down")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file")
	serveCmd.Flags().String("id", "", "Worker ID (overrides config)")
	serveCmd.Flags().String("listen", "", "RPC listen address (overrides config)")
	serveCmd.Flags().String("advertise", "", "Address advertised to the coordinator (overrides config)")
	serveCmd.Flags().String("coordinator", "", "Coordinator RPC address (overrides config)")
	serveCmd.Flags().String("data-dir", "", "Directory for stored block files (overrides config)")
}
