package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pitchfund/internal/clock"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/pitchfund/internal/observability/metrics"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"github.com/smallbiznis/pitchfund/pkg/db"
	"github.com/smallbiznis/pitchfund/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Post(ctx context.Context, tx *gorm.DB, posting ledgerdomain.Posting) (ledgerdomain.BalanceEntry, error) {
	if err := validatePosting(posting); err != nil {
		return ledgerdomain.BalanceEntry{}, err
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now()
	var (
		ok  bool
		err error
	)
	switch posting.Direction {
	case ledgerdomain.DirectionCredit:
		ok, err = s.repo.Credit(ctx, tx, posting.UserID, posting.Account, posting.Amount, now)
	case ledgerdomain.DirectionDebit:
		ok, err = s.repo.Debit(ctx, tx, posting.UserID, posting.Account, posting.Amount, now)
	}
	if err != nil {
		return ledgerdomain.BalanceEntry{}, err
	}

	balance, exists, err := s.repo.Balance(ctx, tx, posting.UserID, posting.Account)
	if err != nil {
		return ledgerdomain.BalanceEntry{}, err
	}
	if !exists {
		return ledgerdomain.BalanceEntry{}, userdomain.ErrNotFound
	}
	if !ok {
		if posting.Direction == ledgerdomain.DirectionDebit {
			return ledgerdomain.BalanceEntry{}, &userdomain.InsufficientBalanceError{
				Required:  posting.Amount,
				Available: balance,
			}
		}
		return ledgerdomain.BalanceEntry{}, userdomain.ErrNotFound
	}

	entry := ledgerdomain.BalanceEntry{
		ID:           s.genID.Generate(),
		UserID:       posting.UserID,
		Account:      posting.Account,
		Direction:    posting.Direction,
		Amount:       posting.Amount,
		BalanceAfter: balance,
		SourceType:   posting.SourceType,
		SourceID:     posting.SourceID,
		CreatedAt:    now,
	}
	if err := s.repo.InsertEntry(ctx, tx, &entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return ledgerdomain.BalanceEntry{}, ledgerdomain.ErrDuplicatePosting
		}
		return ledgerdomain.BalanceEntry{}, err
	}

	s.obsMetrics.RecordLedgerPosting(ctx, string(posting.SourceType), string(posting.Account))
	s.log.Debug("balance posted",
		zap.String("user_id", posting.UserID.String()),
		zap.String("account", string(posting.Account)),
		zap.String("direction", string(posting.Direction)),
		zap.Int64("amount", posting.Amount),
		zap.String("source_type", string(posting.SourceType)),
		zap.String("source_id", posting.SourceID.String()),
	)
	return entry, nil
}

func (s *Service) ListEntries(ctx context.Context, req ledgerdomain.ListEntriesRequest) (ledgerdomain.ListEntriesResponse, error) {
	if req.UserID == 0 {
		return ledgerdomain.ListEntriesResponse{}, ledgerdomain.ErrInvalidUser
	}
	cursor, err := req.Pagination.Cursor()
	if err != nil {
		return ledgerdomain.ListEntriesResponse{}, ledgerdomain.ErrInvalidPageToken
	}

	limit := req.Pagination.Limit()
	items, err := s.repo.ListEntries(ctx, s.db, ledgerdomain.ListFilter{
		UserID: req.UserID,
		Cursor: cursor,
		Limit:  limit,
	})
	if err != nil {
		return ledgerdomain.ListEntriesResponse{}, err
	}

	page, info, err := pagination.Trim(items, limit, func(e *ledgerdomain.BalanceEntry) pagination.Cursor {
		return pagination.Cursor{ID: e.ID.Int64(), CreatedAt: e.CreatedAt}
	})
	if err != nil {
		return ledgerdomain.ListEntriesResponse{}, err
	}

	entries := make([]ledgerdomain.BalanceEntry, 0, len(page))
	for _, item := range page {
		if item != nil {
			entries = append(entries, *item)
		}
	}
	return ledgerdomain.ListEntriesResponse{PageInfo: info, Entries: entries}, nil
}

func validatePosting(p ledgerdomain.Posting) error {
	if p.UserID == 0 {
		return ledgerdomain.ErrInvalidUser
	}
	if !p.Account.Valid() {
		return ledgerdomain.ErrInvalidAccount
	}
	switch p.Direction {
	case ledgerdomain.DirectionCredit, ledgerdomain.DirectionDebit:
	default:
		return ledgerdomain.ErrInvalidDirection
	}
	if p.Amount <= 0 {
		return ledgerdomain.ErrInvalidAmount
	}
	if strings.TrimSpace(string(p.SourceType)) == "" {
		return ledgerdomain.ErrInvalidSourceType
	}
	if p.SourceID == 0 {
		return ledgerdomain.ErrInvalidSourceID
	}
	return nil
}
