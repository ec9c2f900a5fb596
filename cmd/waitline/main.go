package main

import (
	"context"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"golang.org/x/crypto/bcrypt"

	"waitline/internal/config"
	"waitline/internal/http/handlers"
	applog "waitline/internal/log"
	"waitline/internal/repos"
	"waitline/internal/sched"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	tokenHash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminToken), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}

	// Templates & app
	engine := html.New("./web/templates", ".html")
	engine.Reload(true)

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if rerr := c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		Next: func(c *fiber.Ctx) bool {
			// API and admin callers authenticate with headers, not cookies.
			p := c.Path()
			return strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/admin/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok := c.Locals("csrf"); tok != nil {
			c.Locals("CSRFToken", tok.(string))
		}
		return c.Next()
	})

	// ---------- App handlers ----------
	deps := handlers.NewDeps(db, cfg)

	// Public pages
	app.Get("/waitlist/:id", deps.WaitlistHandler.JoinForm)
	app.Post("/waitlist/:id", deps.WaitlistHandler.Join)
	app.Get("/waitlist/:id/status", deps.WaitlistHandler.StatusPage)

	// API
	api := app.Group("/api/v1")
	joinLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|join"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.join.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})
	api.Get("/availability", deps.StockHandler.Check)
	api.Post("/waitlist", joinLimiter, deps.WaitlistHandler.Join)
	api.Get("/waitlist/:id/status", deps.WaitlistHandler.Status)

	// Admin & internal (checkout calls convert, cron calls sweep)
	admin := app.Group("/admin", handlers.RequireAdmin(tokenHash))
	admin.Get("/queue/:id", deps.AdminHandler.Queue)
	admin.Post("/queue/:id/notify", deps.AdminHandler.NotifyNext)
	admin.Post("/entries/:id/remove", deps.AdminHandler.RemoveEntry)
	admin.Post("/entries/:id/convert", deps.AdminHandler.Convert)
	admin.Post("/resources/:id/soldout", deps.AdminHandler.SetSoldOut)
	admin.Post("/resources/:id/capacity", deps.AdminHandler.SetCapacity)
	admin.Post("/sweep", deps.AdminHandler.Sweep)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).Render("notfound", fiber.Map{"Message": "Page not found"})
	})

	// Periodic sweep: expires lapsed offers and cascades promotion. The
	// core never owns this timer; cadence only needs to be at least once
	// per offer window.
	sched.Every(context.Background(), cfg.SweepInterval, func() {
		if n := deps.Offers.Sweep(); n > 0 {
			applog.Info(nil, "sweep.tick", map[string]any{"cascades": n})
		}
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
