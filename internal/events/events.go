package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"bouquet/internal/domain"
)

// OrderPlaced публикуется после успешного оформления заказа
type OrderPlaced struct {
	OrderID          int64           `json:"order_id"`
	CustomerID       string          `json:"customer_id"`
	PaymentID        int64           `json:"payment_id"`
	DiscountID       *int64          `json:"discount_id,omitempty"`
	TotalAmountToPay decimal.Decimal `json:"total_amount_to_pay"`
	Lines            int             `json:"lines"`
	PlacedAt         time.Time       `json:"placed_at"`
}

func NewOrderPlaced(o *domain.Order, p *domain.Payment) OrderPlaced {
	ev := OrderPlaced{
		OrderID:          o.ID,
		CustomerID:       o.CustomerID,
		PaymentID:        o.PaymentID,
		TotalAmountToPay: o.TotalAmountToPay,
		Lines:            len(o.Items),
		PlacedAt:         o.CreatedAt,
	}
	if p != nil {
		ev.DiscountID = p.DiscountID
	}
	return ev
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error
}

// Writer подмножество kafka.Writer, подменяется в тестах
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w Writer
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func NewKafkaPublisher(w Writer) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

var _ Publisher = (*KafkaPublisher)(nil)

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode order placed: %w", err)
	}
	// keyed by customer so one customer's orders stay in one partition
	msg := kafka.Message{
		Key:   []byte(ev.CustomerID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("order.placed")},
			{Key: "order_id", Value: []byte(strconv.FormatInt(ev.OrderID, 10))},
		},
		Time: ev.PlacedAt,
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order placed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// NopPublisher когда kafka не настроена
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }
