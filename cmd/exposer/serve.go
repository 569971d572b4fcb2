package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/exposer"
	"github.com/aretw0/exposer/internal/config"
	"github.com/aretw0/exposer/internal/demo"
	"github.com/aretw0/exposer/internal/logging"
	"github.com/aretw0/exposer/pkg/adapters/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the demo device model over HTTP",
	Long: `Starts the engine with the demo "device" model registered. Every exposed
field is served under /device/<path>; the whole model under /device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		logger := logging.New(level, cfg.Log.Format)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := []exposer.Option{
			exposer.WithLogger(logger),
			exposer.WithAddr(cfg.Server.Addr),
			exposer.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		}
		if cfg.Metrics.Enabled {
			opts = append(opts, exposer.WithMetrics(prometheus.NewRegistry()))
		}
		if cfg.Redis.Addr != "" {
			broker := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
				redis.WithPrefix(cfg.Redis.Prefix),
				redis.WithLogger(logger),
			)
			defer broker.Close()
			if err := broker.Ping(ctx); err != nil {
				return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
			}
			logger.Info("Publishing changes to redis", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
			opts = append(opts, exposer.WithPublisher(broker))
		}

		eng := exposer.New(demo.Registry(), opts...)
		defer eng.Close()

		device := demo.NewDevice()
		if err := eng.Register("device", device); err != nil {
			return err
		}

		if interval, _ := cmd.Flags().GetDuration("simulate"); interval > 0 {
			go demo.Simulate(ctx, device, interval)
		}

		h, err := eng.Start(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving device on http://%s\n", h.Addr())
		if err := h.Wait(); err != nil {
			return err
		}
		logger.Info("Exposer stopped gracefully")
		return nil
	},
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Flags())
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	serveCmd.Flags().String("redis", "", "Redis address for change publishing")
	serveCmd.Flags().Bool("metrics", false, "Serve Prometheus metrics at /metrics")
	serveCmd.Flags().Duration("simulate", 2*time.Second, "Thermostat simulation interval (0 disables)")
}
