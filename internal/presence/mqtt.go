package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/example/room-booking/internal/application"
)

// Recorder is the slice of application.CheckInService used by the subscriber.
type Recorder interface {
	Record(ctx context.Context, bookingID string) (application.CheckIn, error)
}

// SubscriberConfig describes the broker connection.
type SubscriberConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	// HandleTimeout bounds a single Record call.
	HandleTimeout time.Duration
}

// BadgeEvent is the payload published by readers.
type BadgeEvent struct {
	BookingID string `json:"booking_id"`
}

// Subscriber records check-ins published on <prefix>/<reader>/checkin.
type Subscriber struct {
	cfg      SubscriberConfig
	recorder Recorder
	logger   *slog.Logger
	client   mqtt.Client
}

// NewSubscriber validates cfg. No connection is made until Start.
func NewSubscriber(cfg SubscriberConfig, recorder Recorder, logger *slog.Logger) (*Subscriber, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errors.New("presence: broker must be set")
	}
	if recorder == nil {
		return nil, errors.New("presence: recorder must be set")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "badges"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "bookingd"
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{cfg: cfg, recorder: recorder, logger: logger.With("component", "presence.Subscriber")}, nil
}

// Topic is the subscription filter.
func (s *Subscriber) Topic() string {
	return strings.TrimSuffix(s.cfg.TopicPrefix, "/") + "/+/checkin"
}

// Start connects and subscribes. Subscriptions are restored on reconnect.
func (s *Subscriber) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.Topic(), s.cfg.QoS, s.onMessage(ctx))
		if token.Wait() && token.Error() != nil {
			s.logger.Error("failed to subscribe", "topic", s.Topic(), "error", token.Error())
			return
		}
		s.logger.Info("subscribed", "topic", s.Topic())
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Warn("connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("presence: connect to %s: %w", s.cfg.Broker, token.Error())
	}
	return nil
}

// Stop unsubscribes and disconnects.
func (s *Subscriber) Stop() {
	if s.client == nil {
		return
	}
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.Topic()).WaitTimeout(time.Second)
	}
	s.client.Disconnect(250)
}

func (s *Subscriber) onMessage(ctx context.Context) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if err := s.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
			s.logger.Warn("badge event rejected", "topic", msg.Topic(), "error", err, "error_kind", application.ErrorKind(err))
		}
	}
}

// Handle records a single badge event.
func (s *Subscriber) Handle(ctx context.Context, topic string, payload []byte) error {
	var event BadgeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("presence: decode payload: %w", err)
	}
	event.BookingID = strings.TrimSpace(event.BookingID)
	if event.BookingID == "" {
		return fmt.Errorf("presence: %w: empty booking_id", application.ErrBookingNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.HandleTimeout)
	defer cancel()
	record, err := s.recorder.Record(ctx, event.BookingID)
	if err != nil {
		return err
	}
	s.logger.Debug("badge event recorded", "topic", topic, "booking_id", record.BookingID, "recorded_at", record.RecordedAt)
	return nil
}
