package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"waitline/internal/domain"
	applog "waitline/internal/log"
	"waitline/internal/repos"
	"waitline/internal/services"
	"waitline/internal/validate"
)

type AdminHandler struct {
	Waitlist  *services.WaitlistService
	Offers    *services.OfferService
	Resources *repos.ResourceRepo
	Orders    *repos.OrderRepo
}

// Queue renders the waiting list for one resource, newest offers first in
// the terminal sections.
func (h *AdminHandler) Queue(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing resource id")
	}
	res, err := h.Resources.Get(rid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Unknown resource"})
	}
	waiting, err := h.Waitlist.List(rid, domain.StatusWaiting)
	if err != nil {
		applog.Error(c, "admin.queue.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).SendString("could not load queue")
	}
	notified, err := h.Waitlist.List(rid, domain.StatusNotified)
	if err != nil {
		applog.Error(c, "admin.queue.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).SendString("could not load queue")
	}
	return render(c, "queue", fiber.Map{
		"Resource": res,
		"Waiting":  waiting,
		"Notified": notified,
	})
}

// NotifyNext manually promotes the head of the queue, outside the automatic
// sweep cascade.
func (h *AdminHandler) NotifyNext(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid resource id"})
	}
	entry, err := h.Offers.NotifyNext(rid)
	if err != nil {
		applog.Error(c, "admin.notify.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	if entry == nil {
		return c.JSON(fiber.Map{"notified": false})
	}
	applog.Audit(c, "admin.notify", map[string]any{"resource": rid, "entry": entry.ID})
	return c.JSON(fiber.Map{"notified": true, "entry": entry.ID, "expires_at": entry.ExpiresAt})
}

// RemoveEntry drops an entry from the queue and renumbers the rest.
func (h *AdminHandler) RemoveEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	ok, err := h.Waitlist.Remove(id)
	if err != nil {
		applog.Error(c, "admin.remove.fail", err, map[string]any{"entry": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	applog.Audit(c, "admin.remove", map[string]any{"entry": id, "removed": ok})
	return c.JSON(fiber.Map{"removed": ok})
}

// Convert is called by the checkout flow once a notified entrant completes
// their purchase: it records the order and closes out the entry.
func (h *AdminHandler) Convert(c *fiber.Ctx) error {
	id := c.Params("id")
	ok, err := h.Offers.Convert(id)
	if err != nil {
		applog.Error(c, "admin.convert.fail", err, map[string]any{"entry": id})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	if !ok {
		// Offer lapsed or entry was never notified; buyer must re-check availability.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"converted": false})
	}
	if e, err := h.Waitlist.Entries.Get(id); err == nil {
		if err := h.Orders.Record(uuid.NewString(), e.ResourceID, e.Email); err != nil {
			applog.Error(c, "admin.convert.order.fail", err, map[string]any{"entry": id})
		}
	}
	applog.Audit(c, "admin.convert", map[string]any{"entry": id})
	return c.JSON(fiber.Map{"converted": true})
}

// SetSoldOut toggles the manual sold-out override.
func (h *AdminHandler) SetSoldOut(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid resource id"})
	}
	v := c.FormValue("value") == "1" || c.FormValue("value") == "true" || c.Query("value") == "true"
	if err := h.Resources.SetManualSoldOut(rid, v); err != nil {
		applog.Error(c, "admin.soldout.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	applog.Audit(c, "admin.soldout", map[string]any{"resource": rid, "value": v})
	return c.JSON(fiber.Map{"manual_sold_out": v})
}

// SetCapacity updates a resource's capacity; an empty value means unlimited.
func (h *AdminHandler) SetCapacity(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid resource id"})
	}
	raw := c.FormValue("capacity")
	if raw == "" {
		raw = c.Query("capacity")
	}
	var capacity *int
	if raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid capacity"})
		}
		capacity = &n
	}
	if err := h.Resources.SetCapacity(rid, capacity); err != nil {
		applog.Error(c, "admin.capacity.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal"})
	}
	applog.Audit(c, "admin.capacity", map[string]any{"resource": rid, "capacity": raw})
	return c.JSON(fiber.Map{"ok": true})
}

// Sweep triggers an expiry pass on demand, same as the periodic ticker.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	n := h.Offers.Sweep()
	applog.Audit(c, "admin.sweep", map[string]any{"cascades": n})
	return c.JSON(fiber.Map{"cascades": n})
}
