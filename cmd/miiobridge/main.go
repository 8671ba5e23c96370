// miiobridge exposes Xiaomi miio gateways and their sub-devices as HomeKit
// style accessories.
//
// Gateways are reached through a miio protocol agent over MQTT. Accessories
// are published to HomeKit, to an MQTT endpoint surface and to the status
// API; pushes are optionally recorded in InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/api"
	"github.com/nerrad567/gray-logic-miio/internal/binding"
	"github.com/nerrad567/gray-logic-miio/internal/bridges/miio"
	"github.com/nerrad567/gray-logic-miio/internal/gateway"
	"github.com/nerrad567/gray-logic-miio/internal/history"
	"github.com/nerrad567/gray-logic-miio/internal/host/homekit"
	"github.com/nerrad567/gray-logic-miio/internal/host/mqtthost"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-miio/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
	"github.com/nerrad567/gray-logic-miio/internal/platform"
	"github.com/nerrad567/gray-logic-miio/internal/process"
	"github.com/nerrad567/gray-logic-miio/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// agentStartTimeout bounds how long discovery waits for a supervised agent.
const agentStartTimeout = 30 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting miio bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"gateways", len(cfg.Gateways),
		"level", cfg.Logging.Level,
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS, "."); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	mqttClient, err := mqtt.Connect(cfg.MQTT, bridgeTopic(cfg, "status"))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log)
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	broker := mqttAdapter{mqttClient}

	var observers []accessory.Observer

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		observers = append(observers, history.NewRecorder(influxClient))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	l := loop.New()
	env := binding.NewEnv(ctx, l, log)

	miioClient := miio.NewClient(miio.ClientOptions{
		MQTT:     broker,
		BridgeID: cfg.Bridge.ID,
		Config:   cfg.Miio,
		Logger:   log,
	})
	if startErr := miioClient.Start(); startErr != nil {
		return fmt.Errorf("starting miio client: %w", startErr)
	}

	hub := api.NewHub(cfg.WebSocket, log)
	observers = append(observers, hub)

	var hosts []platform.Host
	var endpoints *mqtthost.Host
	if cfg.Endpoints.Enabled {
		endpoints = mqtthost.New(mqtthost.Options{
			MQTT:   broker,
			Prefix: cfg.Endpoints.TopicPrefix,
			QoS:    byte(cfg.MQTT.QoS),
			Logger: log,
		})
		if startErr := endpoints.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT endpoints: %w", startErr)
		}
		hosts = append(hosts, endpoints)
		observers = append(observers, endpoints)
	}

	var hk *homekit.Host
	if cfg.HomeKit.Enabled {
		hk = homekit.New(homekit.Options{
			Name:         cfg.Bridge.Name,
			Manufacturer: cfg.Bridge.Manufacturer,
			Version:      version,
			Pin:          cfg.HomeKit.Pin,
			StoragePath:  cfg.HomeKit.StoragePath,
			Address:      cfg.HomeKit.Address,
			Logger:       log,
		})
		hosts = append(hosts, hk)
		observers = append(observers, hk)
	}

	plat := platform.New(env, platform.Options{
		Manufacturer: cfg.Bridge.Manufacturer,
		Store:        accessory.NewSQLiteStore(db.DB),
		Hosts:        hosts,
		Observers:    observers,
	})
	if restoreErr := plat.Restore(ctx); restoreErr != nil {
		return fmt.Errorf("restoring accessories: %w", restoreErr)
	}

	manager := gateway.NewManager(gateway.ManagerOptions{
		Gateways:     cfg.Gateways,
		Resolver:     miioClient,
		Attacher:     plat,
		Loop:         l,
		PollInterval: cfg.PollInterval,
		Logger:       log,
	})

	reporter := gateway.NewHealthReporter(gateway.HealthReporterConfig{
		BridgeID:    cfg.Bridge.ID,
		Version:     version,
		Topic:       bridgeTopic(cfg, "health"),
		Publisher:   mqttClient,
		Gateways:    manager,
		Accessories: func() int { return len(plat.Accessories()) },
		Logger:      log,
	})
	reporter.Start(ctx)
	defer reporter.Stop()

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Accessories: plat,
			Gateways:    manager,
			Hub:         hub,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.Run(gctx) })

	if agent := cfg.Miio.Agent; agent.Enabled {
		sup := process.NewSupervisor(process.Config{
			Name:            "miio-agent",
			Binary:          agent.Binary,
			Args:            agent.Args,
			RestartDelay:    agent.RestartDelay,
			MaxRestarts:     agent.MaxRestarts,
			GracefulTimeout: agent.GracefulTimeout,
			Probe:           miioClient.Ping,
			ProbeInterval:   agent.ProbeInterval,
		}, log)
		g.Go(func() error { return sup.Run(gctx) })
	}

	g.Go(func() error {
		if cfg.Miio.Agent.Enabled {
			if waitErr := waitForAgent(gctx, miioClient.Ping, agentStartTimeout); waitErr != nil {
				log.Warn("miio agent not answering yet, starting discovery anyway", "error", waitErr)
			}
		}
		return manager.Run(gctx)
	})
	if endpoints != nil {
		g.Go(func() error { return endpoints.Run(gctx) })
	}
	if hk != nil {
		g.Go(func() error {
			select {
			case <-manager.Settled():
			case <-gctx.Done():
				return nil
			}
			return hk.Serve(gctx)
		})
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	err = g.Wait()

	log.Info("miio bridge stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// waitForAgent pings until the agent answers, ctx ends or timeout passes.
func waitForAgent(ctx context.Context, ping func(context.Context) error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		err := ping(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for miio agent: %w", err)
		case <-ticker.C:
		}
	}
}

func getConfigPath() string {
	if path := os.Getenv("MIIOBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// bridgeTopic returns {endpoints prefix}/bridge/{bridge id}/{leaf}.
func bridgeTopic(cfg *config.Config, leaf string) string {
	return mqtt.JoinTopic(cfg.Endpoints.TopicPrefix, "bridge", cfg.Bridge.ID, leaf)
}
