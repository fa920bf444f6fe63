// Package mqtt publishes finished evacuation plans to an MQTT broker for
// downstream consumers (dashboards, field units).
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/civigrid/evacd/core/model"
	"github.com/civigrid/evacd/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string      `json:"broker" yaml:"broker"`
	ClientID   string      `json:"client_id" yaml:"client_id"`
	Username   string      `json:"username" yaml:"username"`
	Password   string      `json:"password" yaml:"password"`
	Topic      string      `json:"topic" yaml:"topic"`
	QoS        byte        `json:"qos" yaml:"qos"`
	Retain     bool        `json:"retain" yaml:"retain"`
	UseTLS     bool        `json:"use_tls" yaml:"use_tls"`
	ClientCert string      `json:"client_cert" yaml:"client_cert"`
	ClientKey  string      `json:"client_key" yaml:"client_key"`
	CABundle   string      `json:"ca_bundle" yaml:"ca_bundle"`
	MaxRetries int         `json:"max_retries" yaml:"max_retries"`
	BackoffMS  int         `json:"backoff_ms" yaml:"backoff_ms"`
	TLSConfig  *tls.Config `json:"-" yaml:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Notifier publishes plans over MQTT. Publish failures are retried with
// exponential backoff; the caller decides whether a final failure matters.
type Notifier struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewNotifier connects to the broker and returns a ready notifier.
func NewNotifier(cfg Config) (*Notifier, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt-notifier")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if cfg.Topic == "" {
		cfg.Topic = "evacd/plan"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffMS <= 0 {
		cfg.BackoffMS = 100
	}
	return &Notifier{
		cli:        c,
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg := cfg.TLSConfig
		if tlsCfg == nil {
			var err error
			tlsCfg, err = newTLSConfig(cfg)
			if err != nil {
				return nil, err
			}
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

func newTLSConfig(c Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load client cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// NotifyPlan publishes the plan as JSON on the configured topic.
func (n *Notifier) NotifyPlan(ctx context.Context, plan model.Plan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("mqtt: marshal plan: %w", err)
	}

	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := n.cli.Publish(n.topic, n.qos, n.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			n.log.Infof("published plan %s to %s", plan.Meta.RunID, n.topic)
			return nil
		}
		n.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(n.backoff * time.Duration(1<<attempt))
	}
	return fmt.Errorf("mqtt: publish plan: %w", publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	n.cli.Disconnect(250)
}
