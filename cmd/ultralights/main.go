// UltraLights Core - Motion Automation Engine
//
// This is the main entry point for the UltraLights Core application.
// UltraLights Core drives networked lighting nodes over MQTT:
//   - Motion-triggered preset application with per-sensor debounce
//   - Per-room time-of-day schedules mapping slots to presets
//   - Immunity overrides exempting chosen nodes from automation
//   - Optional telemetry into InfluxDB
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ultralights/ultralights-core/migrations"

	"github.com/ultralights/ultralights-core/internal/infrastructure/config"
	"github.com/ultralights/ultralights-core/internal/infrastructure/database"
	"github.com/ultralights/ultralights-core/internal/infrastructure/influxdb"
	"github.com/ultralights/ultralights-core/internal/infrastructure/logging"
	"github.com/ultralights/ultralights-core/internal/infrastructure/mqtt"
	"github.com/ultralights/ultralights-core/internal/motion"
	"github.com/ultralights/ultralights-core/internal/preset"
	"github.com/ultralights/ultralights-core/internal/registry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting UltraLights Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise topology registry (houses, rooms, nodes)
	topoRepo := registry.NewSQLiteRepository(db.DB)
	topo := registry.NewRegistry(topoRepo)
	topo.SetLogger(log)

	if refreshErr := topo.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading topology registry: %w", refreshErr)
	}
	log.Info("topology registry initialised", "nodes", topo.NodeCount())

	// Initialise preset catalog
	presetRepo := preset.NewSQLiteRepository(db.DB)
	catalog := preset.NewCatalog(presetRepo)
	catalog.SetLogger(log)

	if refreshErr := catalog.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading preset catalog: %w", refreshErr)
	}
	log.Info("preset catalog initialised", "presets", catalog.Count())

	// Open the file-backed motion stores
	schedules, err := motion.NewScheduleStore(cfg.Motion.ScheduleFile, cfg.Motion.SlotMinutes)
	if err != nil {
		return fmt.Errorf("loading schedule store: %w", err)
	}
	schedules.SetLogger(log)
	log.Info("schedule store loaded",
		"path", cfg.Motion.ScheduleFile,
		"slot_minutes", cfg.Motion.SlotMinutes,
		"slots_per_day", schedules.SlotCount(),
	)

	prefs, err := motion.NewPreferenceStore(cfg.Motion.PrefsFile)
	if err != nil {
		return fmt.Errorf("loading preference store: %w", err)
	}
	prefs.SetLogger(log)
	log.Info("preference store loaded", "path", cfg.Motion.PrefsFile)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
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

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Rate-limited command bus on top of the raw client
	bus := mqtt.NewBus(mqttClient, byte(cfg.MQTT.QoS))
	bus.SetLogger(log)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Assemble the motion automation engine
	actionReg := preset.NewDefaultRegistry()
	applier := preset.NewApplier(bus)
	applier.SetLogger(log)

	manager := motion.NewManager(motion.Config{
		DefaultDuration:       time.Duration(cfg.Motion.DefaultDuration) * time.Second,
		StatusRequestInterval: cfg.GetStatusRequestInterval(),
		OffFadeMS:             cfg.Motion.OffFadeMS,
	}, topo, schedules, prefs, catalog, actionReg, applier, bus)
	manager.SetLogger(log)
	if influxClient != nil {
		manager.SetTelemetry(influxClient)
	}
	defer manager.Stop()

	// Topology deletions cascade into every store that keys on the room
	// or node, so no orphaned schedules or immunity entries survive.
	topo.SetOnRoomDeleted(func(houseID, roomID string) {
		manager.ForgetRoom(houseID, roomID)
		if err := catalog.RemoveRoom(context.Background(), houseID, roomID); err != nil {
			log.Error("removing room presets", "room_id", roomID, "error", err)
		}
		if err := schedules.RemoveRoom(houseID, roomID); err != nil {
			log.Error("removing room schedule", "room_id", roomID, "error", err)
		}
		if err := prefs.RemoveRoom(houseID, roomID); err != nil {
			log.Error("removing room preferences", "room_id", roomID, "error", err)
		}
	})
	topo.SetOnNodeDeleted(func(nodeID string) {
		manager.ForgetNode(nodeID)
		if err := prefs.RemoveNode(nodeID); err != nil {
			log.Error("pruning node from preferences", "node_id", nodeID, "error", err)
		}
	})

	// Subscribe to all node event topics
	topics := mqtt.Topics{}
	subscriptions := []string{
		topics.AllMotionEvents(),
		topics.AllStatusEvents(),
		topics.AllMotionStatusEvents(),
	}
	for _, topic := range subscriptions {
		if err := mqttClient.Subscribe(topic, byte(cfg.MQTT.QoS), manager.HandleEvent); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	log.Info("event subscriptions active", "topics", len(subscriptions))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Motion manager timers
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("UltraLights Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ULTRALIGHTS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ULTRALIGHTS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
