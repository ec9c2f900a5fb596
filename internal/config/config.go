package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          string
	DBDSN         string
	LogFile       string
	AdminToken    string
	OfferWindow   time.Duration
	SweepInterval time.Duration
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "waitline.db"
	} // sqlite file in project root
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./waitline.log"
	}
	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		adminToken = "waitline-admin" // dev default; set ADMIN_TOKEN in production
	}

	cfg := Config{
		Port:          port,
		DBDSN:         dsn,
		LogFile:       logFile,
		AdminToken:    adminToken,
		OfferWindow:   time.Duration(envInt("OFFER_WINDOW_HOURS", 48)) * time.Hour,
		SweepInterval: time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s OFFER_WINDOW=%s SWEEP_INTERVAL=%s",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.OfferWindow, cfg.SweepInterval)
	return cfg
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		log.Printf("[config] ignoring bad %s=%q, using %d", key, s, def)
		return def
	}
	return n
}
