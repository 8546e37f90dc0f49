package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/persistence"
)

// AuditService records auth events. Every event is logged; when Redis is
// reachable the event is also appended to a bounded trail so operators can
// inspect recent activity without grepping logs.
type AuditService struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, redis *persistence.Redis, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		redis:      redis,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to auth events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAccountRegistered, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleEvent)
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_type", string(event.Type)),
		zap.String("username", event.Username),
		zap.Any("payload", event.Payload))

	a.appendTrail(ctx, event)
	return nil
}

func (a *AuditService) appendTrail(ctx context.Context, event events.Event) {
	if a.redis == nil || a.redis.Client == nil {
		return
	}

	record, err := json.Marshal(event)
	if err != nil {
		a.logger.Warn("failed to encode audit event", zap.Error(err))
		return
	}

	pipe := a.redis.Client.Pipeline()
	pipe.LPush(ctx, a.cfg.RedisKey, record)
	if a.cfg.TrailMax > 0 {
		pipe.LTrim(ctx, a.cfg.RedisKey, 0, a.cfg.TrailMax-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// audit trail is best-effort; the log line above is the durable record
		a.logger.Warn("failed to append audit trail", zap.Error(err))
	}
}
