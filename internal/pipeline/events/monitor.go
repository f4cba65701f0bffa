package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/domain"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/model"
)

// Config holds the event bus connection and the completion queues to
// inspect
type Config struct {
	Enabled        bool
	Host           string
	Port           int
	User           string
	Password       string
	VHost          string
	Queues         []string
	Heartbeat      time.Duration
	ConnectTimeout time.Duration
}

const defaultConnectTimeout = 5 * time.Second

// Monitor passively inspects the stage-completion queues on the event
// bus: depth and consumer counts, nothing consumed, nothing declared.
// One dial attempt per inspection; the bus being down degrades the
// report, never the process. With no broker configured every inspection
// reports disabled, mirroring the bus being an optional dependency.
type Monitor struct {
	config Config
	logger *slog.Logger
	now    func() time.Time
}

func NewMonitor(config Config, logger *slog.Logger) *Monitor {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}

	return &Monitor{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Inspect reports the current state of the completion queues. The dial is
// bounded by the configured connect timeout, not by ctx: once started it
// runs to completion or timeout.
func (m *Monitor) Inspect(ctx context.Context) model.BusStatus {
	checkedAt := m.now()

	if !m.config.Enabled {
		return model.BusStatus{
			Status:    domain.BusStatusDisabled,
			Detail:    "event bus monitoring is not configured",
			CheckedAt: checkedAt,
		}
	}

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		m.config.User,
		m.config.Password,
		m.config.Host,
		m.config.Port,
		m.config.VHost,
	)

	conn, err := amqp.DialConfig(dsn, amqp.Config{
		Heartbeat: m.config.Heartbeat,
		Dial:      amqp.DefaultDial(m.config.ConnectTimeout),
		Locale:    "en_US",
	})
	if err != nil {
		m.logger.Error("Event bus unreachable", slog.Any("error", err))
		return model.BusStatus{
			Status:    domain.BusStatusError,
			Detail:    fmt.Sprintf("event bus unreachable: %v", err),
			CheckedAt: checkedAt,
		}
	}
	defer conn.Close()

	queues := make([]model.QueueStatus, 0, len(m.config.Queues))
	for _, name := range m.config.Queues {
		queues = append(queues, m.inspectQueue(conn, name))
	}

	return model.BusStatus{
		Status:    domain.BusStatusActive,
		Queues:    queues,
		CheckedAt: checkedAt,
	}
}

// inspectQueue checks one queue on its own channel. A passive declare on
// a missing queue closes the channel, so channels are not shared across
// queues.
func (m *Monitor) inspectQueue(conn *amqp.Connection, name string) model.QueueStatus {
	channel, err := conn.Channel()
	if err != nil {
		m.logger.Warn("Failed to open channel for queue inspection",
			slog.String("queue", name),
			slog.Any("error", err),
		)
		return model.QueueStatus{Queue: name, Error: "channel unavailable"}
	}

	queue, err := channel.QueueDeclarePassive(
		name,  // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		m.logger.Warn("Completion queue not declared",
			slog.String("queue", name),
			slog.Any("error", err),
		)
		return model.QueueStatus{Queue: name, Error: "queue not declared"}
	}
	channel.Close()

	return model.QueueStatus{
		Queue:     name,
		Messages:  queue.Messages,
		Consumers: queue.Consumers,
	}
}
