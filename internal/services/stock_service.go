package services

import (
	"waitline/internal/domain"
)

// PurchaseCounter is the commerce collaborator: the authoritative source of
// completed purchases counted against capacity.
type PurchaseCounter interface {
	CompletedCount(resourceID string) (int, error)
	HasCompletedPurchase(resourceID, email string) (bool, error)
}

// StockService computes stock snapshots and sold-out status for resources.
// Snapshots are recomputed on every call so concurrent operations never act
// on a stale sold-out decision.
type StockService struct {
	Purchases PurchaseCounter
}

func NewStockService(p PurchaseCounter) *StockService { return &StockService{Purchases: p} }

// Snapshot derives {total, sold, available, unlimited} from the resource's
// configured capacity and the completed-purchase count.
func (s *StockService) Snapshot(r domain.Resource) (domain.StockSnapshot, error) {
	sold, err := s.Purchases.CompletedCount(r.ID)
	if err != nil {
		return domain.StockSnapshot{}, err
	}
	if r.Unlimited() {
		return domain.StockSnapshot{Sold: sold, Unlimited: true}, nil
	}
	avail := *r.Capacity - sold
	if avail < 0 {
		avail = 0
	}
	return domain.StockSnapshot{Total: *r.Capacity, Sold: sold, Available: avail}, nil
}

// IsSoldOut reports whether sales are closed: the manual override always
// wins, otherwise a finite resource with zero availability is sold out.
func (s *StockService) IsSoldOut(r domain.Resource) (bool, error) {
	if r.ManualSoldOut {
		return true, nil
	}
	snap, err := s.Snapshot(r)
	if err != nil {
		return false, err
	}
	return !snap.Unlimited && snap.Available == 0, nil
}

// IsManuallySoldOut exposes the override flag alone so the UI can tell
// "stock depleted" apart from "closed by admin".
func (s *StockService) IsManuallySoldOut(r domain.Resource) bool {
	return r.ManualSoldOut
}
