package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/chargepoint-core/internal/api"
	"github.com/nerrad567/chargepoint-core/internal/charger"
	"github.com/nerrad567/chargepoint-core/internal/console"
	"github.com/nerrad567/chargepoint-core/internal/dispatch"
	"github.com/nerrad567/chargepoint-core/internal/hmi"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/config"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/database"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/logging"
	"github.com/nerrad567/chargepoint-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/chargepoint-core/internal/journal"
	"github.com/nerrad567/chargepoint-core/internal/meter"
	"github.com/nerrad567/chargepoint-core/internal/worker"
	"github.com/nerrad567/chargepoint-core/migrations"
)

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - opts: Command line flags
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts *options) error { //nolint:gocognit,gocyclo // startup sequence reads top to bottom
	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.console {
		cfg.Console.Enabled = true
	}

	// The console owns the terminal; logs and the display go through it so
	// they do not overwrite the prompt.
	var log *logging.Logger
	var out io.Writer = os.Stdout
	var con *console.Console
	if cfg.Console.Enabled {
		con, err = console.New(console.Config{Prompt: cfg.Console.Prompt, HistoryFile: cfg.Console.HistoryFile})
		if err != nil {
			return fmt.Errorf("starting console: %w", err)
		}
		out = con.Stdout()
		log = logging.NewWithWriter(out, cfg.Logging, version)
	} else {
		log = logging.New(cfg.Logging, version)
	}
	log.Info("starting chargepoint",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	c, err := newCharger(cfg.Charger)
	if err != nil {
		return err
	}
	chargerID := c.ID().String()
	log = log.With("charger_id", chargerID)
	log.Info("charger initialised", "state", c.State(), "connectors", len(c.Connectors()))

	topics := mqtt.Topics{Prefix: cfg.Protocol.TopicPrefix, ChargerID: chargerID}

	var effects dispatch.Effects
	if cfg.HMI.Enabled {
		effects = hmi.NewTerminal(out)
	}

	energy := meter.NewSimulated(c.Connectors()[0].PowerW, 0, nil)

	d, err := dispatch.New(dispatch.Options{
		Charger: c,
		Effects: effects,
		Logger:  log.Component("dispatch"),
		Meter:   energy,
		Boot: dispatch.BootInfo{
			Vendor: cfg.Charger.Vendor,
			Model:  cfg.Charger.Model,
			Serial: cfg.Charger.Serial,
		},
		IDTag:             cfg.Charger.IDTag,
		Address:           cfg.Charger.Address,
		CallTopic:         topics.Call(),
		QoS:               byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0..2
		HeartbeatInterval: cfg.Protocol.HeartbeatInterval,
		RecoveryDelay:     cfg.Protocol.ErrorRecoveryDelay,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer d.Close()
	d.OnStateChange(energy.Observe)

	// Open database and journal (optional)
	var db *database.DB
	var repo journal.Repository
	var recorder *journal.Recorder
	if cfg.Journal.Enabled {
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		log.Info("database ready", "path", db.Path())

		repo = journal.NewSQLiteRepository(db.DB)
		recorder = journal.NewRecorder(repo, chargerID, log.Component("journal"))
		recorder.Attach(d)
	} else {
		log.Info("journal disabled")
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT, topics)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

	err = mqttClient.Subscribe(topics.Result(), byte(cfg.MQTT.QoS), func(_ string, payload []byte) error { //nolint:gosec // validated to 0..2
		d.PushIncomingMessage(payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to results: %w", err)
	}
	defer func() {
		if unsubErr := mqttClient.Unsubscribe(topics.Result()); unsubErr != nil {
			log.Warn("error unsubscribing from results", "error", unsubErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"call_topic", topics.Call(),
		"result_topic", topics.Result(),
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		attachTelemetry(d, influxClient, chargerID)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	group := worker.NewGroup(ctx, log.Component("worker"), worker.DefaultPolicy)

	// Start local API (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:     cfg.API,
			WS:         cfg.WebSocket,
			Logger:     log.Component("api"),
			Controller: d,
			Journal:    repo,
			Checks:     healthCheckers(db, mqttClient, influxClient),
			Version:    version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(group.Context()); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	group.Go("hardware", d.RunHardware)
	group.Go("inbound", d.RunInbound)
	group.Go("heartbeat", d.RunHeartbeat)
	group.Go("transmit", func(ctx context.Context) { d.RunTransmit(ctx, mqttClient) })
	if recorder != nil {
		group.Go("journal", recorder.Run)
		group.Go("journal-pruner", func(ctx context.Context) {
			journal.RunPruner(ctx, repo, cfg.JournalRetention(), journal.DefaultPruneInterval, log.Component("journal"))
		})
	}

	d.Refresh()
	d.Boot()

	if con != nil {
		group.Go("console", func(ctx context.Context) { con.Run(ctx, d, group.Cancel) })
	}

	log.Info("initialisation complete")
	<-group.Context().Done()

	log.Info("shutting down")
	group.Cancel()
	group.Wait()
	log.Info("chargepoint stopped")
	return nil
}

// newCharger builds the charger from configuration, generating an identity
// when none is configured.
func newCharger(cfg config.ChargerConfig) (*charger.Charger, error) {
	connectors := make([]charger.Connector, 0, len(cfg.Connectors))
	for _, cc := range cfg.Connectors {
		typ, err := charger.ParseConnectorType(cc.Type)
		if err != nil {
			return nil, fmt.Errorf("connector %s: %w", cc.ID, err)
		}
		connectors = append(connectors, charger.Connector{ID: cc.ID, Type: typ, PowerW: cc.PowerW})
	}

	id := charger.Identity(cfg.ID)
	if id == "" {
		id = charger.NewIdentity()
	}

	c, err := charger.New(charger.Options{ID: id, Connectors: connectors})
	if err != nil {
		return nil, fmt.Errorf("creating charger: %w", err)
	}
	return c, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check (nil when the journal is disabled)
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (nil when disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	for name, check := range healthCheckers(db, mqttClient, influxClient) {
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// healthCheckers lists the enabled components. Typed nils are left out.
func healthCheckers(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) map[string]api.HealthChecker {
	checks := make(map[string]api.HealthChecker, 3)
	if db != nil {
		checks["database"] = db
	}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	return checks
}
