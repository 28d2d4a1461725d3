package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func sample() (*entity.Movement, *entity.StockSnapshot) {
	at := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	m := &entity.Movement{
		ID: "mov-1", OrganizationID: "org-1", ProductID: "p1", UserID: "u1",
		Type: entity.MovementTypeExit, Quantity: decimal.RequireFromString("2.5"),
		UnitOfMeasure: "KG", OccurredAt: at, CreatedAt: at,
	}
	s := &entity.StockSnapshot{OrganizationID: "org-1", ProductID: "p1", CurrentQuantity: decimal.RequireFromString("7.5"), UnitOfMeasure: "KG", UpdatedAt: at}
	return m, s
}

func TestPublishMovementRecorded(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: "stock.events", appID: "stock-ledger", log: zerolog.Nop()}
	m, s := sample()

	require.NoError(t, p.PublishMovementRecorded(context.Background(), m, s))
	assert.Equal(t, "stock.events", ch.exchange)
	assert.Equal(t, RoutingMovementRecorded, ch.key)
	assert.Equal(t, "mov-1", ch.msg.MessageId)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var body map[string]any
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "stock.movement.recorded", body["event_type"])
	mov := body["movement"].(map[string]any)
	assert.Equal(t, "EXIT", mov["type"])
	assert.Equal(t, "2.5", mov["quantity"])
	snap := body["snapshot"].(map[string]any)
	assert.Equal(t, "7.5", snap["current_quantity"])
}

func TestPublishMovementRecorded_Errores(t *testing.T) {
	m, s := sample()

	p := &AMQPPublisher{ch: &fakeChannel{err: errors.New("canal cerrado")}, log: zerolog.Nop()}
	assert.Error(t, p.PublishMovementRecorded(context.Background(), m, s))

	ch := &fakeChannel{}
	p = &AMQPPublisher{ch: ch, log: zerolog.Nop()}
	p.Close()
	assert.True(t, ch.closed)
	assert.Error(t, p.PublishMovementRecorded(context.Background(), m, s))
}
