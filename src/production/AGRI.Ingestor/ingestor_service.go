package agriingestor

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Config"
	coordinator "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Coordinator"
	logger "gitlab.com/agrisense1/agri.irrigation_server/src/production/AGRI.Logger"
)

// ErrNotConnected is surfaced when an actuation command cannot be delivered
// because the transport is down.
var ErrNotConnected = errors.New("mqtt transport not connected")

const publishTimeout = 5 * time.Second

// Ingestor bridges the MQTT transport and the coordinator: inbound
// telemetry topics feed parsed events into the coordinator, and the
// coordinator/schedule engine publish actuation commands through it.
type Ingestor struct {
	cfg    *config.Config
	coord  *coordinator.Coordinator
	log    *logger.Logger
	client mqtt.Client
}

// New creates an ingestor bound to the coordinator.
func New(cfg *config.Config, coord *coordinator.Coordinator, log *logger.Logger) *Ingestor {
	return &Ingestor{
		cfg:   cfg,
		coord: coord,
		log:   log.WithComponent("ingestor"),
	}
}

// Start connects to the broker with exponential backoff and subscribes to
// the device topics. Subscriptions are re-established on every reconnect.
func (i *Ingestor) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(i.cfg.GetMQTTBrokerURL()).
		SetClientID(i.cfg.MQTT.ClientID).
		SetOrderMatters(true).
		SetKeepAlive(i.cfg.MQTT.KeepAlive).
		SetPingTimeout(i.cfg.MQTT.PingTimeout).
		SetAutoReconnect(true).
		SetCleanSession(false)

	if i.cfg.MQTT.BrokerUser != "" {
		opts.SetUsername(i.cfg.MQTT.BrokerUser)
		opts.SetPassword(i.cfg.MQTT.BrokerPass)
	}

	if i.cfg.MQTT.UseTLS {
		tlsCfg, err := i.tlsConfig(i.cfg.MQTT.CACertPath)
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		i.log.WithError(err).Warn("mqtt connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		i.log.Info("mqtt connected, subscribing to device topics")
		i.subscribe(c)
	}

	i.client = mqtt.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	connect := func() error {
		if token := i.client.Connect(); token.Wait() && token.Error() != nil {
			i.log.WithError(token.Error()).Warn("mqtt connect attempt failed")
			return token.Error()
		}
		return nil
	}
	if err := backoff.Retry(connect, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("connect to mqtt broker: %w", err)
	}
	return nil
}

// Stop disconnects from the broker.
func (i *Ingestor) Stop() {
	if i.client != nil && i.client.IsConnected() {
		i.client.Disconnect(500)
	}
}

// IsConnected reports transport health.
func (i *Ingestor) IsConnected() bool {
	return i.client != nil && i.client.IsConnected()
}

func (i *Ingestor) subscribe(c mqtt.Client) {
	prefix := i.cfg.MQTT.TopicPrefix
	subs := map[string]mqtt.MessageHandler{
		prefix + "/sensors/temperature": i.sensorHandler(coordinator.SensorTemperature),
		prefix + "/sensors/humidity":    i.sensorHandler(coordinator.SensorHumidity),
		prefix + "/motor/status":        i.onMotorStatus,
		prefix + "/device/status":       i.onDeviceStatus,
	}
	for topic, handler := range subs {
		if token := c.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			i.log.WithError(token.Error()).Error("subscribe failed: " + topic)
		}
	}
}

func (i *Ingestor) sensorHandler(kind string) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		value, err := ParseSensorValue(m.Payload())
		if err != nil {
			// expected noise from flaky firmware; drop and carry on
			i.log.WithError(err).Warn("dropping malformed payload on " + m.Topic())
			return
		}
		i.coord.RecordSensor(kind, value)
	}
}

func (i *Ingestor) onMotorStatus(_ mqtt.Client, m mqtt.Message) {
	on, err := ParseMotorStatus(m.Payload())
	if err != nil {
		i.log.WithError(err).Warn("dropping malformed payload on " + m.Topic())
		return
	}
	i.coord.RecordActuatorStatus(on)
}

func (i *Ingestor) onDeviceStatus(_ mqtt.Client, m mqtt.Message) {
	status, err := ParseDeviceStatus(m.Payload())
	if err != nil {
		i.log.WithError(err).Warn("dropping malformed payload on " + m.Topic())
		return
	}
	i.coord.RecordDeviceStatus(status.Online)
}

// PublishControl sends "ON"/"OFF" to the actuation topic with at-least-once
// delivery. Returns ErrNotConnected when the transport is down; the caller
// decides whether and when to reattempt.
func (i *Ingestor) PublishControl(on bool) error {
	if !i.IsConnected() {
		return ErrNotConnected
	}
	payload := "OFF"
	if on {
		payload = "ON"
	}
	topic := i.cfg.MQTT.TopicPrefix + "/motor/control"
	token := i.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: publish acknowledgement timed out", ErrNotConnected)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", payload, topic, err)
	}
	i.log.Info("actuator command published: " + payload)
	return nil
}

func (i *Ingestor) tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file")
	}
	cfg.RootCAs = cp
	return cfg, nil
}
