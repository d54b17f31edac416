package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-stomp/stomp/v3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TopicSyncFinished = "sync.finished"
	TopicSourceHealth = "source.health"
)

// Publisher delivers JSON events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

var (
	pubMu sync.RWMutex
	pub   Publisher
)

func SetPublisher(p Publisher) {
	pubMu.Lock()
	pub = p
	pubMu.Unlock()
}

func current() Publisher {
	pubMu.RLock()
	defer pubMu.RUnlock()
	return pub
}

// Connect picks AMQP when a URL is given, otherwise STOMP when a host is
// given. Without either, events are only logged.
func Connect(network, host, amqpURL string) {
	switch {
	case amqpURL != "":
		p, err := DialAMQP(amqpURL)
		if err != nil {
			log.Errorf("AMQP broker unavailable: %v", err)
			return
		}
		SetPublisher(p)
		log.Infof("Connected to AMQP broker")
	case host != "":
		p, err := DialSTOMP(network, host)
		if err != nil {
			log.Errorf("STOMP broker unavailable: %v", err)
			return
		}
		SetPublisher(p)
		log.Infof("Connected to STOMP broker at %s", host)
	default:
		log.Info("No message broker configured, events will not be published")
	}
}

func Close() {
	if p := current(); p != nil {
		if err := p.Close(); err != nil {
			log.Warnf("Closing broker: %v", err)
		}
		SetPublisher(nil)
	}
}

func sendReliable(ctx context.Context, topic string, v any) error {
	p := current()
	if p == nil {
		return nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if err := p.Publish(ctx, topic, body); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

type STOMPPublisher struct {
	conn *stomp.Conn
}

func DialSTOMP(network, host string) (*STOMPPublisher, error) {
	if network == "" {
		network = "tcp"
	}
	conn, err := stomp.Dial(network, host)
	if err != nil {
		return nil, err
	}
	return &STOMPPublisher{conn: conn}, nil
}

func (s *STOMPPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	return s.conn.Send("/topic/"+topic, "application/json", payload, stomp.SendOpt.Receipt)
}

func (s *STOMPPublisher) Close() error {
	return s.conn.Disconnect()
}

const amqpExchange = "istock.events"

type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func DialAMQP(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		amqpExchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

func (a *AMQPPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return a.channel.PublishWithContext(ctx,
		amqpExchange, // exchange
		topic,        // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: uuid.NewString(),
			DeliveryMode:  amqp.Persistent,
			Body:          payload,
		})
}

func (a *AMQPPublisher) Close() error {
	if err := a.channel.Close(); err != nil {
		a.conn.Close()
		return err
	}
	return a.conn.Close()
}
