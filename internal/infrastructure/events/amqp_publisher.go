package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	ExchangeType            = "topic"
	RoutingMovementRecorded = "stock.movement.recorded"
	publishTimeout          = 5 * time.Second
)

var _ inventory.EventPublisher = (*AMQPPublisher)(nil)

// channel subconjunto de *amqp.Channel usado por el publisher.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publica movimientos confirmados en un exchange topic de RabbitMQ.
// amqp.Channel no es seguro para uso concurrente; las publicaciones se serializan con mu.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	exchange string
	appID    string
	log      zerolog.Logger
}

// NewAMQPPublisher conecta, abre un canal y declara el exchange (durable).
func NewAMQPPublisher(url, exchange, appID string, log zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("conectar a RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("abrir canal: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, ExchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declarar exchange: %w", err)
	}
	log.Info().Str("exchange", exchange).Msg("publisher conectado a RabbitMQ")
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, appID: appID, log: log}, nil
}

// MovementRecordedEvent cuerpo JSON del evento stock.movement.recorded.
type MovementRecordedEvent struct {
	EventType string          `json:"event_type"`
	Movement  movementPayload `json:"movement"`
	Snapshot  snapshotPayload `json:"snapshot"`
}

type movementPayload struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	ProductID      string          `json:"product_id"`
	UserID         string          `json:"user_id"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitOfMeasure  string          `json:"unit_of_measure"`
	Observation    string          `json:"observation,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

type snapshotPayload struct {
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	UnitOfMeasure   string          `json:"unit_of_measure"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewMovementRecordedEvent arma el evento a partir del movimiento y el snapshot resultante.
func NewMovementRecordedEvent(m *entity.Movement, s *entity.StockSnapshot) MovementRecordedEvent {
	return MovementRecordedEvent{
		EventType: RoutingMovementRecorded,
		Movement: movementPayload{
			ID:             m.ID,
			OrganizationID: m.OrganizationID,
			ProductID:      m.ProductID,
			UserID:         m.UserID,
			Type:           string(m.Type),
			Quantity:       m.Quantity,
			UnitOfMeasure:  m.UnitOfMeasure,
			Observation:    m.Observation,
			OccurredAt:     m.OccurredAt,
		},
		Snapshot: snapshotPayload{
			CurrentQuantity: s.CurrentQuantity,
			UnitOfMeasure:   s.UnitOfMeasure,
			UpdatedAt:       s.UpdatedAt,
		},
	}
}

// PublishMovementRecorded implementa inventory.EventPublisher.
func (p *AMQPPublisher) PublishMovementRecorded(ctx context.Context, m *entity.Movement, s *entity.StockSnapshot) error {
	body, err := json.Marshal(NewMovementRecordedEvent(m, s))
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return fmt.Errorf("publisher cerrado")
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingMovementRecorded, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.ID,
		Timestamp:    m.CreatedAt,
		AppId:        p.appID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publicar evento: %w", err)
	}
	return nil
}

// Close cierra canal y conexión.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
