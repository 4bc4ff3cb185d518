package services

import (
	"context"
	"database/sql"
	"errors"

	"webshop/server/internal/common"
	"webshop/server/internal/dbx"
	"webshop/server/internal/server/models"
	"webshop/server/internal/server/repositories/repomanager"
)

// CartItem is a cart line enriched with catalog data for the read path.
type CartItem struct {
	GoodID     int64
	Name       string
	PriceCents int64
	Quantity   int64
	PictureURL string
}

// PictureSigner issues a temporary GET URL for a stored picture object.
type PictureSigner interface {
	PictureGetURL(ctx context.Context, key string) (string, error)
}

// CartService reconciles client-submitted carts against the stored session
// cart using the client-carried logical clock, last-writer-wins over the
// full snapshot.
type CartService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      PictureSigner
}

// NewCartService constructs a CartService.
func NewCartService(db *sql.DB, m repomanager.RepositoryManager, signer PictureSigner) *CartService {
	return &CartService{db: db, repomanager: m, signer: signer}
}

// SetCart replaces the session's cart with the incoming snapshot.
//
// The whole replacement runs in one transaction with the session row
// locked. An incoming clock strictly below the stored one is a stale write
// (the client is behind) and fails with ErrStaleCartWrite; an equal clock
// is accepted so resubmission is idempotent. Two clients racing with the
// same stale clock are both rejected deterministically.
//
// Lines referencing goods absent from the catalog, and lines with a
// non-positive quantity, are silently dropped rather than failing the
// write.
func (s *CartService) SetCart(ctx context.Context, sessionID int64, savedAt int64, lines []models.CartLine) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sessionRepo := s.repomanager.Sessions(tx)

		locked, err := sessionRepo.GetForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrSessionNotFound
			}
			return err
		}

		if locked.OrdersSavedAt != nil && savedAt < *locked.OrdersSavedAt {
			return common.ErrStaleCartWrite
		}

		if err := sessionRepo.DeleteLines(ctx, sessionID); err != nil {
			return err
		}

		goodRepo := s.repomanager.Goods(tx)
		for _, line := range lines {
			if line.Quantity <= 0 {
				continue
			}
			exists, err := goodRepo.Exists(ctx, line.GoodID)
			if err != nil {
				return err
			}
			if !exists {
				continue
			}
			if err := sessionRepo.InsertLine(ctx, &models.CartLine{
				SessionID: sessionID,
				GoodID:    line.GoodID,
				Quantity:  line.Quantity,
			}); err != nil {
				return err
			}
		}

		return sessionRepo.SetOrdersSavedAt(ctx, sessionID, savedAt)
	})
}

// GetCart returns the session's cart lines in order, enriched with catalog
// name, price and a presigned picture URL when the good has one. Pure read.
func (s *CartService) GetCart(ctx context.Context, session *models.Session) ([]CartItem, error) {
	goodRepo := s.repomanager.Goods(s.db)

	items := make([]CartItem, 0, len(session.Lines))
	for _, line := range session.Lines {
		good, err := goodRepo.Get(ctx, line.GoodID)
		if err != nil {
			return nil, err
		}

		item := CartItem{
			GoodID:     good.ID,
			Name:       good.Name,
			PriceCents: good.PriceCents,
			Quantity:   line.Quantity,
		}
		if good.StorageKey != nil {
			url, err := s.signer.PictureGetURL(ctx, *good.StorageKey)
			if err != nil {
				return nil, err
			}
			item.PictureURL = url
		}
		items = append(items, item)
	}
	return items, nil
}
