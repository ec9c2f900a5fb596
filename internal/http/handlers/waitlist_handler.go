package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"waitline/internal/domain"
	applog "waitline/internal/log"
	"waitline/internal/repos"
	"waitline/internal/services"
	"waitline/internal/validate"
)

type WaitlistHandler struct {
	Waitlist  *services.WaitlistService
	Resources *repos.ResourceRepo
	Stock     *services.StockService
}

type joinRequest struct {
	ResourceID string `json:"resource_id" form:"resourceId"`
	Email      string `json:"email" form:"email"`
	FirstName  string `json:"first_name" form:"firstName"`
	LastName   string `json:"last_name" form:"lastName"`
	Phone      string `json:"phone" form:"phone"`
}

// joinError maps service rejections onto an HTTP status and a stable error
// code the join form and API clients can switch on.
func joinError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidEmail):
		return fiber.StatusBadRequest, "invalid_email"
	case errors.Is(err, services.ErrAlreadyWaitlisted):
		return fiber.StatusConflict, "already_waitlisted"
	case errors.Is(err, services.ErrAlreadyRegistered):
		return fiber.StatusConflict, "already_registered"
	case errors.Is(err, services.ErrNotEligible):
		return fiber.StatusConflict, "not_eligible"
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	default:
		return fiber.StatusInternalServerError, "internal"
	}
}

// JoinForm renders the public join page for a resource.
func (h *WaitlistHandler) JoinForm(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing resource id")
	}
	res, err := h.Resources.Get(rid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Unknown resource"})
	}
	soldOut, err := h.Stock.IsSoldOut(res)
	if err != nil {
		applog.Error(c, "waitlist.form.stock.fail", err, map[string]any{"resource": rid})
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Something went wrong"})
	}
	return render(c, "join", fiber.Map{
		"Resource":      res,
		"SoldOut":       soldOut,
		"ManualSoldOut": h.Stock.IsManuallySoldOut(res),
	})
}

// Join handles both the form post and the JSON API join.
func (h *WaitlistHandler) Join(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request"})
	}
	if req.ResourceID == "" {
		req.ResourceID = c.Params("id")
	}
	rid, ok := validate.ID(req.ResourceID)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_resource"})
	}
	if _, ok := validate.Name(req.FirstName); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_name"})
	}
	if _, ok := validate.Name(req.LastName); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_name"})
	}
	if _, ok := validate.Phone(req.Phone); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_phone"})
	}

	entry, err := h.Waitlist.RequestJoin(rid, domain.Identity{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		status, code := joinError(err)
		if status == fiber.StatusInternalServerError {
			applog.Error(c, "waitlist.join.fail", err, map[string]any{"resource": rid})
		} else {
			applog.Info(c, "waitlist.join.reject", map[string]any{"resource": rid, "code": code})
		}
		return c.Status(status).JSON(fiber.Map{"error": code, "message": err.Error()})
	}

	applog.Audit(c, "waitlist.join", map[string]any{"resource": rid, "entry": entry.ID, "position": entry.Position})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": entry.ID, "position": entry.Position})
}

// Status shows "you are #N on the waitlist" for an email on a resource.
func (h *WaitlistHandler) Status(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_resource"})
	}
	entry, err := h.Waitlist.StatusFor(rid, c.Query("email"))
	if err != nil {
		status, code := joinError(err)
		return c.Status(status).JSON(fiber.Map{"error": code})
	}
	return c.JSON(fiber.Map{
		"id":       entry.ID,
		"status":   entry.Status,
		"position": entry.Position,
	})
}

// StatusPage is the rendered variant of Status for the public site.
func (h *WaitlistHandler) StatusPage(c *fiber.Ctx) error {
	rid, ok := validate.ID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing resource id")
	}
	res, err := h.Resources.Get(rid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Unknown resource"})
	}
	entry, err := h.Waitlist.StatusFor(rid, c.Query("email"))
	if err != nil {
		return render(c, "status", fiber.Map{"Resource": res, "NotFound": true})
	}
	return render(c, "status", fiber.Map{"Resource": res, "Entry": entry})
}
