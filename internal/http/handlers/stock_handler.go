package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "waitline/internal/log"
	"waitline/internal/repos"
	"waitline/internal/services"
	"waitline/internal/validate"
)

type StockHandler struct {
	Resources *repos.ResourceRepo
	Stock     *services.StockService
}

// Check returns the live stock snapshot plus the sold-out verdict. The
// public site uses sold_out to decide whether to show the waitlist join
// button instead of the buy button.
func (h *StockHandler) Check(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Query("resourceId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid resourceId"})
	}
	res, err := h.Resources.Get(rid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown resource"})
	}
	snap, err := h.Stock.Snapshot(res)
	if err != nil {
		applog.Error(c, "stock.snapshot.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	soldOut, err := h.Stock.IsSoldOut(res)
	if err != nil {
		applog.Error(c, "stock.soldout.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	return c.JSON(fiber.Map{
		"snapshot":        snap,
		"sold_out":        soldOut,
		"manual_sold_out": h.Stock.IsManuallySoldOut(res),
	})
}
