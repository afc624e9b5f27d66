package repos

import (
	"context"
	"fmt"

	"github.com/gracechapel/outreach-backend/internal/clients/recordstore"
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/types"
)

// SourceRepo back-links intake records in their per-channel source tables to
// the canonical member record. The link is the replay detector: a webhook
// redelivery finds its source record already linked and short-circuits.
type SourceRepo interface {
	// GetLink returns the linked member ID for a source record, or ""
	// when the record exists but is not linked yet.
	GetLink(ctx context.Context, ch types.Channel, recordID string) (string, error)
	SetLink(ctx context.Context, ch types.Channel, recordID, personID string) error
}

type sourceRepo struct {
	store  recordstore.Client
	schema recordstore.Schema
	log    *logger.Logger
}

func NewSourceRepo(store recordstore.Client, schema recordstore.Schema, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{store: store, schema: schema, log: baseLog.With("repo", "SourceRepo")}
}

func (sr *sourceRepo) table(ch types.Channel) (string, error) {
	switch ch {
	case types.ChannelEvangelism:
		return sr.schema.Evangelism, nil
	case types.ChannelFirstTimer:
		return sr.schema.FirstTimer, nil
	case types.ChannelReturner:
		return sr.schema.Returner, nil
	default:
		return "", fmt.Errorf("channel %q has no source table", ch)
	}
}

func (sr *sourceRepo) GetLink(ctx context.Context, ch types.Channel, recordID string) (string, error) {
	table, err := sr.table(ch)
	if err != nil {
		return "", err
	}
	rec, err := getRecordByID(ctx, sr.store, table, recordID)
	if err != nil {
		return "", err
	}
	return flink(rec.Fields, fldMember), nil
}

func (sr *sourceRepo) SetLink(ctx context.Context, ch types.Channel, recordID, personID string) error {
	table, err := sr.table(ch)
	if err != nil {
		return err
	}
	if personID == "" {
		return fmt.Errorf("person id required for back-link")
	}
	f := recordstore.Fields{}
	setLink(f, fldMember, personID)
	_, err = sr.store.Update(ctx, table, recordID, f)
	return err
}
