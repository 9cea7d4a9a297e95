package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/chargepoint-core/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is in milliseconds, as paho expects.
	defaultDisconnectQuiesce = 1000

	defaultKeepAlive = 60 * time.Second
	maxQoS           = 2
	tlsMinVersion    = tls.VersionTLS12
)

// Presence values published on the status topic.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Reasons attached to offline presence messages.
const (
	reasonUnexpected = "unexpected_disconnect"
	reasonShutdown   = "graceful_shutdown"
)

// Presence is the retained payload on the status topic.
type Presence struct {
	Status    string    `json:"status"`
	ChargerID string    `json:"charger_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// clientID returns the configured client ID, falling back to one derived
// from the charger so two chargers on one broker never collide.
func clientID(cfg config.MQTTConfig, topics Topics) string {
	if cfg.Broker.ClientID != "" {
		return cfg.Broker.ClientID
	}
	return "chargepoint-" + topics.ChargerID
}

// buildClientOptions maps the MQTT config section onto paho options:
// broker URL (tcp or ssl), credentials, clean session, reconnect backoff
// and keepalive.
func buildClientOptions(cfg config.MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(clientID(cfg, topics))

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureLWT registers the Last Will so the broker marks the charger
// offline (retained, QoS 1) if the connection drops without a Close.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics) {
	opts.SetWill(topics.Status(), string(presencePayload(StatusOffline, topics.ChargerID, reasonUnexpected)), 1, true)
}

// presencePayload encodes a Presence message stamped with the current time.
func presencePayload(status, chargerID, reason string) []byte {
	data, err := json.Marshal(Presence{
		Status:    status,
		ChargerID: chargerID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		// Presence only holds strings and a time; Marshal cannot fail.
		return []byte(`{"status":"` + status + `"}`)
	}
	return data
}
