package performance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/FOCALIZAHR/focalizahr-mvp-sub010/internal/platform/querier"
)

// CampaignStore is the Postgres-backed campaign collaborator.
type CampaignStore struct {
	DB querier.Querier
}

func NewCampaignStore(db querier.Querier) *CampaignStore {
	return &CampaignStore{DB: db}
}

var _ CampaignActivator = (*CampaignStore)(nil)

func (s *CampaignStore) CampaignStatus(ctx context.Context, tenantID, campaignID string) (string, error) {
	var status string
	err := s.DB.QueryRow(ctx, `SELECT status FROM campaigns WHERE tenant_id = $1 AND id = $2`, tenantID, campaignID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

func (s *CampaignStore) ActivateCampaign(ctx context.Context, tenantID, campaignID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE campaigns SET status = $1, activated_at = now()
    WHERE tenant_id = $2 AND id = $3 AND status = $4
  `, CampaignStatusActive, tenantID, campaignID, CampaignStatusDraft)
	return err
}
