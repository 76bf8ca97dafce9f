package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/workstream-hq/workstream/internal/apperr"
	"github.com/workstream-hq/workstream/internal/audit"
	"github.com/workstream-hq/workstream/internal/models"
	"github.com/workstream-hq/workstream/internal/repository"
)

// ChannelService handles channel CRUD. Like message mutations, channel
// creation audits in the same transaction.
type ChannelService struct {
	store    repository.TxRunner
	channels repository.ChannelRepository
	audit    *audit.Recorder
	logger   *zap.Logger
}

func NewChannelService(store repository.TxRunner, channels repository.ChannelRepository, recorder *audit.Recorder, logger *zap.Logger) *ChannelService {
	return &ChannelService{store: store, channels: channels, audit: recorder, logger: logger}
}

func (s *ChannelService) Create(ctx context.Context, orgID, userID uuid.UUID, name, description string, isSystem bool, meta *audit.RequestMeta) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Channel name cannot be empty or only whitespace")
	}

	var channel *models.Channel
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		channel, err = tx.Channels().Create(ctx, orgID, name, strings.TrimSpace(description), isSystem)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateChannelName) {
				return apperr.Conflict("Channel with name '%s' already exists in this organization", name)
			}
			return err
		}

		return s.audit.RecordCreate(ctx, tx.AuditLogs(), audit.Entry{
			EntityType: "channel",
			EntityID:   channel.ID,
			UserID:     userID,
			OrgID:      orgID,
			Meta:       meta,
		}, channelFields(channel))
	})
	if err != nil {
		return nil, err
	}

	return channel, nil
}

func (s *ChannelService) Get(ctx context.Context, orgID, channelID uuid.UUID) (*models.Channel, error) {
	channel, err := s.channels.GetByID(ctx, orgID, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, apperr.NotFound("Channel not found")
	}
	return channel, nil
}

func (s *ChannelService) List(ctx context.Context, orgID uuid.UUID) ([]models.Channel, error) {
	return s.channels.ListByOrg(ctx, orgID)
}

func channelFields(ch *models.Channel) map[string]any {
	return map[string]any{
		"id":          ch.ID.String(),
		"org_id":      ch.OrgID.String(),
		"name":        ch.Name,
		"description": ch.Description,
		"is_system":   ch.IsSystem,
		"created_at":  ch.CreatedAt.UTC().Format(time.RFC3339),
	}
}
