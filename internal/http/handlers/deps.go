package handlers

import (
	"github.com/jmoiron/sqlx"

	"waitline/internal/config"
	"waitline/internal/repos"
	"waitline/internal/services"
)

type Deps struct {
	WaitlistHandler *WaitlistHandler
	StockHandler    *StockHandler
	AdminHandler    *AdminHandler

	Offers *services.OfferService
}

func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	resourceRepo := repos.NewResourceRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	entryRepo := repos.NewWaitlistRepo(db)

	locks := services.NewLockring()
	notifier := services.LogNotifier{}

	stockSvc := services.NewStockService(orderRepo)
	waitSvc := services.NewWaitlistService(entryRepo, resourceRepo, stockSvc, orderRepo, notifier, locks)
	offerSvc := services.NewOfferService(entryRepo, notifier, locks, cfg.OfferWindow)

	return &Deps{
		WaitlistHandler: &WaitlistHandler{Waitlist: waitSvc, Resources: resourceRepo, Stock: stockSvc},
		StockHandler:    &StockHandler{Resources: resourceRepo, Stock: stockSvc},
		AdminHandler: &AdminHandler{
			Waitlist:  waitSvc,
			Offers:    offerSvc,
			Resources: resourceRepo,
			Orders:    orderRepo,
		},
		Offers: offerSvc,
	}
}
