// Package mqtt publishes integration entities to Home Assistant through MQTT
// discovery.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/concord4-bridge/internal/integration"
	logp "github.com/charmbracelet/log"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "mqtt",
})

// SetLogger replaces the package logger.
func SetLogger(l *logp.Logger) {
	log = l
}

const (
	DefaultTopicPrefix     = "concord4"
	DefaultDiscoveryPrefix = "homeassistant"

	commandTimeout = 10 * time.Second
)

// Host is an integration.Host publishing entities over MQTT.
type Host struct {
	broker          broker
	prefix          string
	discoveryPrefix string

	mu       sync.Mutex
	entities map[string]integration.Entity
}

var _ integration.Host = (*Host)(nil)

// New connects to the broker. Discovery, state and command subscriptions
// are replayed on every reconnect.
func New(cfg Config) (*Host, error) {
	h := newHost(nil, cfg.TopicPrefix, cfg.DiscoveryPrefix)

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "concord4-bridge"
	}
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(h.bridgeTopic(), "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			log.Info("connected", "broker", cfg.Broker)
			go h.republish()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Warn("connection lost", "broker", cfg.Broker, "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	h.broker = pahoBroker{client: client, timeout: 5 * time.Second}
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect: timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return h, nil
}

func newHost(b broker, prefix, discovery string) *Host {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if discovery == "" {
		discovery = DefaultDiscoveryPrefix
	}
	return &Host{
		broker:          b,
		prefix:          strings.TrimSuffix(prefix, "/"),
		discoveryPrefix: strings.TrimSuffix(discovery, "/"),
		entities:        map[string]integration.Entity{},
	}
}

func (h *Host) AddEntities(_ context.Context, entryID string, entities ...integration.Entity) error {
	var errs []error
	for _, e := range entities {
		if _, ok := component(e); !ok {
			continue
		}
		h.mu.Lock()
		h.entities[e.UniqueID()] = e
		h.mu.Unlock()
		if err := h.announce(e); err != nil {
			errs = append(errs, err)
		}
	}
	log.Debug("added entities", "entry", entryID, "count", len(entities))
	return errors.Join(errs...)
}

func (h *Host) RemoveEntities(_ context.Context, entryID string, entities ...integration.Entity) error {
	var errs []error
	for _, e := range entities {
		comp, ok := component(e)
		if !ok {
			continue
		}
		uid := e.UniqueID()
		if _, ok := e.(*integration.AlarmPanel); ok {
			errs = append(errs, h.broker.Unsubscribe(h.topic(uid, "set")))
		}
		errs = append(errs,
			h.broker.Publish(h.topic(uid, "availability"), []byte("offline"), true),
			h.broker.Publish(h.discoveryTopic(comp, uid), nil, true),
		)
		h.mu.Lock()
		delete(h.entities, uid)
		h.mu.Unlock()
	}
	log.Debug("removed entities", "entry", entryID, "count", len(entities))
	return errors.Join(errs...)
}

// WriteState publishes state and availability of an announced entity.
// Entities that were removed are ignored.
func (h *Host) WriteState(e integration.Entity) {
	h.mu.Lock()
	_, ok := h.entities[e.UniqueID()]
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := h.writeState(e); err != nil {
		log.Warn("could not publish state", "entity", e.UniqueID(), "err", err)
	}
}

// Close marks the bridge offline and disconnects.
func (h *Host) Close() {
	if err := h.broker.Publish(h.bridgeTopic(), []byte("offline"), true); err != nil {
		log.Warn("could not publish bridge state", "err", err)
	}
	h.broker.Disconnect()
}

func (h *Host) announce(e integration.Entity) error {
	comp, _ := component(e)
	uid := e.UniqueID()
	payload, err := json.Marshal(h.discovery(e))
	if err != nil {
		return fmt.Errorf("discovery %s: %w", uid, err)
	}
	if err := h.broker.Publish(h.discoveryTopic(comp, uid), payload, true); err != nil {
		return err
	}
	if panel, ok := e.(*integration.AlarmPanel); ok {
		if err := h.broker.Subscribe(h.topic(uid, "set"), func(payload []byte) {
			h.handleCommand(panel, payload)
		}); err != nil {
			return err
		}
	}
	log.Info("published discovery", "entity", uid, "component", comp)
	return nil
}

func (h *Host) writeState(e integration.Entity) error {
	uid := e.UniqueID()
	availability := "offline"
	if e.Available() {
		availability = "online"
	}
	payload, err := json.Marshal(state(e))
	if err != nil {
		return err
	}
	return errors.Join(
		h.broker.Publish(h.topic(uid, "availability"), []byte(availability), true),
		h.broker.Publish(h.topic(uid, "state"), payload, true),
	)
}

func (h *Host) republish() {
	if err := h.broker.Publish(h.bridgeTopic(), []byte("online"), true); err != nil {
		log.Warn("could not publish bridge state", "err", err)
	}
	h.mu.Lock()
	uids := maps.Keys(h.entities)
	slices.Sort(uids)
	entities := make([]integration.Entity, 0, len(uids))
	for _, uid := range uids {
		entities = append(entities, h.entities[uid])
	}
	h.mu.Unlock()

	for _, e := range entities {
		if err := h.announce(e); err != nil {
			log.Warn("could not publish discovery", "entity", e.UniqueID(), "err", err)
		}
		h.WriteState(e)
	}
}

func (h *Host) handleCommand(panel *integration.AlarmPanel, payload []byte) {
	var cmd commandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		log.Warn("invalid command JSON", "entity", panel.UniqueID(), "err", err)
		return
	}
	service, ok := actions[strings.ToUpper(cmd.Action)]
	if !ok {
		log.Warn("unknown command", "entity", panel.UniqueID(), "action", cmd.Action)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := integration.CallService(ctx, panel, service, map[string]any{
		integration.AttrCode: cmd.Code,
	}); err != nil {
		log.Error("command failed", "entity", panel.UniqueID(), "action", cmd.Action, "err", err)
	}
}

func (h *Host) topic(uid, name string) string {
	return h.prefix + "/" + uid + "/" + name
}

func (h *Host) bridgeTopic() string {
	return h.prefix + "/bridge/state"
}

func (h *Host) discoveryTopic(component, uid string) string {
	return h.discoveryPrefix + "/" + component + "/" + integration.Domain + "_" + uid + "/config"
}
