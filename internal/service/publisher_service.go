package service

import (
	"context"
	"encoding/json"
	"time"

	"audiocodes-connector/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
	PublishEvent(ctx context.Context, eventType, externalID string, data map[string]interface{}) error
}

type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (p *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topicName, msg)
}

// PublishEvent wraps a connector event into a message on the bus.
func (p *publisherService) PublishEvent(ctx context.Context, eventType, externalID string, data map[string]interface{}) error {
	payload, err := json.Marshal(dto.ConnectorEventMessage{
		Type:       eventType,
		ExternalID: externalID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.Publish(ctx, payload)
}
