package app

import (
	"strings"
	"time"

	"github.com/gracechapel/outreach-backend/internal/pkg/envutil"
)

type Config struct {
	Env  string
	Addr string

	// Reconciliation pipeline
	Workers      int
	QueueSize    int
	EventTimeout time.Duration
	LockTTL      time.Duration

	// Follow-up policy
	FollowUpCapacity int
	FollowUpDue      time.Duration

	// Record store schema override (YAML table-name mapping)
	SchemaPath string

	// Admin notifications
	AdminEmail string

	CORSOrigins []string
}

func LoadConfig() Config {
	return Config{
		Env:              envutil.Str("APP_ENV", "development"),
		Addr:             envutil.Str("HTTP_ADDR", ":8080"),
		Workers:          envutil.Int("INTAKE_WORKERS", 4),
		QueueSize:        envutil.Int("INTAKE_QUEUE_SIZE", 256),
		EventTimeout:     envutil.Duration("INTAKE_EVENT_TIMEOUT", 2*time.Minute),
		LockTTL:          envutil.Duration("RECONCILE_LOCK_TTL", 30*time.Second),
		FollowUpCapacity: envutil.Int("FOLLOWUP_CAPACITY", 20),
		FollowUpDue:      envutil.Duration("FOLLOWUP_DUE_OFFSET", 72*time.Hour),
		SchemaPath:       envutil.Str("STORE_SCHEMA_PATH", ""),
		AdminEmail:       envutil.Str("ADMIN_EMAIL", ""),
		CORSOrigins:      splitOrigins(envutil.Str("CORS_ORIGINS", "")),
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
