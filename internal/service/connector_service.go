package service

import (
	"context"
	"fmt"

	"audiocodes-connector/internal/dto"
	"audiocodes-connector/internal/pkg/logger"
	"audiocodes-connector/internal/repository/contract"
	"audiocodes-connector/pkg/audiocodes"
	"audiocodes-connector/pkg/digester"
	"audiocodes-connector/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const connectorModule = "CONNECTOR"

// ChatbotConversation is the chatbot session of one connector session.
// *chatbotapi.Conversation satisfies it.
type ChatbotConversation interface {
	Start(ctx context.Context) error
	SendMessage(ctx context.Context, req dto.BotRequest) (*dto.BotResponse, error)
	SetUserInfo(ctx context.Context, data map[string]interface{}) error
	TrackEvent(ctx context.Context, eventType string, data map[string]interface{}) error
}

// ChatbotFactory binds a chatbot conversation to a connector session.
type ChatbotFactory func(session *store.Session) ChatbotConversation

// ChannelClient stamps outgoing activities. *audiocodes.Client satisfies it.
type ChannelClient interface {
	SendMessage(activities []dto.Activity) []dto.Activity
	Escalate(address string) dto.Activity
}

type ConnectorOptions struct {
	ExpiresSeconds     int
	ChatEnabled        bool
	ChatAddress        string
	EscalationMode     string
	NoResultsThreshold int
}

const (
	EscalationModeAsk    = "ask"
	EscalationModeDirect = "direct"
)

type IConnectorService interface {
	CreateConversation(ctx context.Context, conversation string) (*dto.CreateConversationResponse, error)
	Refresh(ctx context.Context) *dto.RefreshResponse
	Disconnect(ctx context.Context, externalID string, req *dto.DisconnectRequest) error
	HandleActivities(ctx context.Context, req *dto.InboundRequest) (*dto.ActivitiesResponse, error)
}

type connectorService struct {
	sessions  contract.SessionRepository
	bots      ChatbotFactory
	channel   ChannelClient
	lang      digester.Translator
	publisher IPublisherService
	logger    logger.ILogger
	opts      ConnectorOptions
}

func NewConnectorService(
	sessions contract.SessionRepository,
	bots ChatbotFactory,
	channel ChannelClient,
	lang digester.Translator,
	publisher IPublisherService,
	log logger.ILogger,
	opts ConnectorOptions,
) IConnectorService {
	if opts.EscalationMode == "" {
		opts.EscalationMode = EscalationModeAsk
	}
	return &connectorService{
		sessions:  sessions,
		bots:      bots,
		channel:   channel,
		lang:      lang,
		publisher: publisher,
		logger:    log,
		opts:      opts,
	}
}

func (s *connectorService) CreateConversation(ctx context.Context, conversation string) (*dto.CreateConversationResponse, error) {
	if conversation == "" {
		return nil, ErrMissingConversation
	}

	s.publish(ctx, dto.ConnectorEventCreated, audiocodes.ExternalID(conversation), nil)

	base := "conversation/" + conversation
	return &dto.CreateConversationResponse{
		ActivitiesURL:  base + "/activities",
		RefreshURL:     base + "/refresh",
		DisconnectURL:  base + "/disconnect",
		ExpiresSeconds: s.opts.ExpiresSeconds,
	}, nil
}

func (s *connectorService) Refresh(ctx context.Context) *dto.RefreshResponse {
	return &dto.RefreshResponse{ExpiresSeconds: s.opts.ExpiresSeconds}
}

// Disconnect records the disconnect reason, when given, in the chatbot user info.
func (s *connectorService) Disconnect(ctx context.Context, externalID string, req *dto.DisconnectRequest) error {
	if req.Reason != "" {
		sess, err := s.sessions.Load(ctx, externalID)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		bot := s.bots(sess)
		if err := bot.SetUserInfo(ctx, map[string]interface{}{"disconnect_reason": req.Reason}); err != nil {
			return err
		}
		if err := s.sessions.Save(ctx, sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	s.publish(ctx, dto.ConnectorEventDisconnected, externalID, map[string]interface{}{"reason": req.Reason})
	return nil
}

// HandleActivities runs one conversation turn.
func (s *connectorService) HandleActivities(ctx context.Context, req *dto.InboundRequest) (*dto.ActivitiesResponse, error) {
	ctx, span := otel.Tracer("audiocodes-connector").Start(ctx, "ConnectorService.HandleActivities")
	defer span.End()
	span.SetAttributes(attribute.String("connector.external_id", req.ExternalID))

	sess, err := s.sessions.Load(ctx, req.ExternalID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load session")
		return nil, fmt.Errorf("load session: %w", err)
	}

	t := &turn{
		svc:      s,
		session:  sess,
		digester: digester.New(s.lang, sess),
		bot:      s.bots(sess),
		out:      []dto.Activity{},
	}

	if err := t.run(ctx, req.Body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		s.logger.Error(connectorModule, "Turn failed", map[string]interface{}{
			"external_id": req.ExternalID,
			"error":       err.Error(),
		})
		s.publish(ctx, dto.ConnectorEventTurnFailed, req.ExternalID, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	span.SetAttributes(attribute.Int("connector.activities", len(t.out)))
	return &dto.ActivitiesResponse{Activities: t.out}, nil
}

// publish hands an event to the bus. Events are auxiliary, failures are only logged.
func (s *connectorService) publish(ctx context.Context, eventType, externalID string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, eventType, externalID, data); err != nil {
		s.logger.Warn(connectorModule, "Failed to publish connector event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
