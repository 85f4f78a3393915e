package service

import (
	"context"
	"encoding/json"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/internal/pkg/logger"
	"audiocodes-connector/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventExporter forwards connector events outside the process. *nats.Publisher satisfies it.
type EventExporter interface {
	Publish(ctx context.Context, event events.Event) error
}

type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	auditLogger logger.ILogger
	sysLogger   logger.ILogger
	exporter    EventExporter
}

// NewConsumerService builds the consumer of connector events. exporter may be nil
// when no broker is reachable; events are then only written to the audit log.
func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	auditLogger logger.ILogger,
	sysLogger logger.ILogger,
	exporter EventExporter,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		auditLogger: auditLogger,
		sysLogger:   sysLogger,
		exporter:    exporter,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var evt dto.ConnectorEventMessage
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		cs.sysLogger.Error("EVENTS", "Failed to unmarshal connector event", map[string]interface{}{"error": err.Error()})
		// Ack invalid messages to prevent infinite retry
		msg.Ack()
		return
	}

	data := map[string]interface{}{"external_id": evt.ExternalID}
	for k, v := range evt.Data {
		data[k] = v
	}
	cs.auditLogger.Info("CONNECTOR", evt.Type, data)

	if cs.exporter != nil {
		exported := events.BaseEvent{
			Type:       evt.Type,
			Data:       data,
			OccurredAt: evt.OccurredAt,
		}
		// Export is auxiliary, a broker outage must not stall the bus.
		if err := cs.exporter.Publish(ctx, exported); err != nil {
			cs.sysLogger.Warn("EVENTS", "Failed to export connector event", map[string]interface{}{
				"type":  evt.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
