package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/cafe-stock-service/internal/inventory"
	"github.com/fekuna/cafe-stock-service/internal/inventory/dto"
	"github.com/fekuna/cafe-stock-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const saleCompleted = "SaleCompleted"

// MessageReader is satisfied by *broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type InventoryListener struct {
	consumer MessageReader
	uc       inventory.UseCase
	logger   logger.ZapLogger
}

func NewInventoryListener(consumer MessageReader, uc inventory.UseCase, logger logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("Starting sales Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping sales Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type SaleCompletedEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   SalePayload `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type SalePayload struct {
	SaleID string            `json:"sale_id"`
	Items  []SaleItemPayload `json:"items"`
}

type SaleItemPayload struct {
	StockID  string          `json:"stock_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// processMessage applies one sale. A rejected sale is logged and skipped; the
// ledger is left as it was.
func (l *InventoryListener) processMessage(ctx context.Context, value []byte) {
	var event SaleCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != saleCompleted {
		return
	}

	l.logger.Info("Processing SaleCompleted event",
		zap.String("event_id", event.EventID),
		zap.String("sale_id", event.Payload.SaleID),
	)

	input := &dto.SaleDeductionInput{SaleID: event.Payload.SaleID}
	for _, item := range event.Payload.Items {
		input.Items = append(input.Items, dto.SaleItem{StockID: item.StockID, Quantity: item.Quantity})
	}

	if _, err := l.uc.DeductFromSale(ctx, input); err != nil {
		l.logger.Error("Failed to deduct stock for sale",
			zap.String("sale_id", event.Payload.SaleID),
			zap.Error(err),
		)
	}
}
