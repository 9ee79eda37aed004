package rabbitmq

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	model_msg "nas-collector/models/msg"
	"nas-collector/pkg/logger"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

type Config struct {
	Url     string
	Queue   string
	// Timeout bounds the TCP connect and the AMQP handshake.
	Timeout time.Duration
}

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	Config  Config
	Conn    *amqp.Connection
	Channel Channel
	Dial    func(url string) (*amqp.Connection, error)

	mu sync.Mutex
}

func NewPublisher(config Config) *Publisher {
	p := &Publisher{Config: config, Dial: amqp.Dial}
	if config.Timeout > 0 {
		p.Dial = func(url string) (*amqp.Connection, error) {
			return amqp.DialConfig(url, amqp.Config{
				Heartbeat: 10 * time.Second,
				Locale:    "en_US",
				Dial:      amqp.DefaultDial(config.Timeout),
			})
		}
	}
	return p
}

// EncodeMsg wraps data in the queue envelope: base64 of the JSON Msg.
func EncodeMsg(msgType string, data []byte, now time.Time) ([]byte, error) {
	jsonData, err := json.Marshal(model_msg.Msg{Type: msgType, Time: now.Unix(), Data: string(data)})
	if err != nil {
		return nil, errors.Wrap(err, "Cannot be encoded in json format")
	}
	encoded := base64.StdEncoding.EncodeToString(jsonData)
	return []byte(encoded), nil
}

// DecodeMsg is the inverse of EncodeMsg.
func DecodeMsg(body []byte) (model_msg.Msg, error) {
	var msg model_msg.Msg
	decoded, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		return msg, errors.Wrap(err, "Unable to decode base64 data")
	}
	err = json.Unmarshal(decoded, &msg)
	return msg, errors.Wrap(err, "Unable to parse json data")
}

func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.setupChannelAndQueue(); err != nil {
		return err
	}

	err := p.Channel.Publish(
		"",             // default exchange
		p.Config.Queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        body,
		},
	)
	if err != nil {
		p.reset()
		return errors.Wrap(err, "publish")
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *Publisher) setupChannelAndQueue() error {
	if p.Channel != nil && (p.Conn == nil || !p.Conn.IsClosed()) {
		return nil
	}
	p.reset()

	conn, err := p.Dial(p.Config.Url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "Failed to open a channel")
	}
	_, err = ch.QueueDeclare(
		p.Config.Queue,
		true,  // durable
		false, // auto delete
		false, // exclusive
		false, // no wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return errors.Wrap(err, "Failed to declare a queue")
	}

	logger.Printf("%s channel & queue declared", p.Config.Queue)
	p.Conn = conn
	p.Channel = ch
	return nil
}

func (p *Publisher) reset() {
	if p.Channel != nil {
		p.Channel.Close()
		p.Channel = nil
	}
	if p.Conn != nil {
		p.Conn.Close()
		p.Conn = nil
	}
}
