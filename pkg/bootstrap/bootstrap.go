package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	shared "github.com/campusreports/report-server/pkg"
	"github.com/campusreports/report-server/pkg/infrastructure/database"
	infrapubsub "github.com/campusreports/report-server/pkg/infrastructure/pubsub"
	infrastorage "github.com/campusreports/report-server/pkg/infrastructure/storage"
)

// Config holds standard configuration for the service
type Config struct {
	ProjectID     string
	EnablePublish bool
	RequireAuth   bool

	// Object storage
	ReportsBucket string

	// Template source: either a GCS object or a local path (local wins)
	TemplateBucket string
	TemplateObject string
	TemplatePath   string

	// Conversion service
	CloudConvertAPIKey  string
	CloudConvertAPIURL  string
	ConvertTo           string // target format; empty disables conversion
	ConvertPollInterval time.Duration
	ConvertMaxWait      time.Duration

	// Credentials file for the Google clients (optional; ADC otherwise)
	ServiceAccountPath string

	SentryDSN string

	// Subject ordering per program cycle, JSON-encoded. Empty falls back
	// to the built-in schema.
	SubjectOrderJSON string
	// Number of subject slots the template declares.
	TemplateSubjectSlots int
}

// Service holds initialized dependencies
type Service struct {
	DB     shared.Database
	Store  shared.BlobStore
	Pub    shared.Publisher
	Auth   *auth.Client // nil unless RequireAuth
	Config *Config
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = shared.ProjectID // Fallback
	}

	return &Config{
		ProjectID:           projectID,
		EnablePublish:       os.Getenv("ENABLE_PUBLISH") == "true",
		RequireAuth:         os.Getenv("REQUIRE_AUTH") == "true",
		ReportsBucket:       getEnv("REPORTS_BUCKET", "campusreports-artifacts"),
		TemplateBucket:      getEnv("TEMPLATE_BUCKET", "campusreports-templates"),
		TemplateObject:      getEnv("TEMPLATE_OBJECT", "report-template.docx"),
		TemplatePath:        os.Getenv("TEMPLATE_PATH"),
		CloudConvertAPIKey:  os.Getenv("CLOUDCONVERT_API_KEY"),
		CloudConvertAPIURL:  getEnv("CLOUDCONVERT_API_URL", "https://api.cloudconvert.com/v2"),
		ConvertTo:           getEnv("CONVERT_TO", "pdf"),
		ConvertPollInterval: getDurationEnv("CONVERT_POLL_INTERVAL", 2*time.Second),
		ConvertMaxWait:      getDurationEnv("CONVERT_MAX_WAIT", 3*time.Minute),
		ServiceAccountPath:  os.Getenv("SERVICE_ACCOUNT_PATH"),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
		SubjectOrderJSON:    os.Getenv("SUBJECT_ORDER_JSON"),
		TemplateSubjectSlots: getIntEnv("TEMPLATE_SUBJECT_SLOTS", 6),
	}
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

// WithGroup implements slog.Handler
func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
	}
}

// WithAttrs implements slog.Handler
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newComp := h.component
	for _, a := range attrs {
		if a.Key == "component" {
			newComp = a.Value.String()
		}
	}
	return &ComponentHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: newComp,
	}
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	comp := h.component

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			comp = a.Value.String()
			return false // stop
		}
		return true
	})

	if comp != "" {
		newMsg := fmt.Sprintf("[%s] %s", comp, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)
		// The 'component' attribute stays in the structured payload on purpose
		r.Attrs(func(a slog.Attr) bool {
			newRecord.AddAttrs(a)
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// InitLogger configures structured logging with Cloud Logging compatible keys
func InitLogger() {
	opts := GetSlogHandlerOptions(parseLogLevel(os.Getenv("LOG_LEVEL")))
	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(&ComponentHandler{Handler: handler})
	slog.SetDefault(logger)
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string) *slog.Logger {
	opts := GetSlogHandlerOptions(parseLogLevel(os.Getenv("LOG_LEVEL")))
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context) (*Service, error) {
	InitLogger()
	cfg := LoadConfig()

	slog.Info("Initializing service", "project_id", cfg.ProjectID)

	var clientOpts []option.ClientOption
	if cfg.ServiceAccountPath != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.ServiceAccountPath))
	}

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID, clientOpts...)
	if err != nil {
		slog.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID, clientOpts...)
		if err != nil {
			slog.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		slog.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		slog.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		slog.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	// Firebase Auth (submitter identity verification)
	var authClient *auth.Client
	if cfg.RequireAuth {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
		if err != nil {
			slog.Error("Firebase init failed", "error", err)
			return nil, fmt.Errorf("firebase init: %w", err)
		}
		authClient, err = app.Auth(ctx)
		if err != nil {
			slog.Error("Firebase auth init failed", "error", err)
			return nil, fmt.Errorf("firebase auth init: %w", err)
		}
	}

	return &Service{
		DB:     database.NewFirestoreAdapter(fsClient),
		Pub:    pubAdapter,
		Store:  &infrastorage.StorageAdapter{Client: gcsClient},
		Auth:   authClient,
		Config: cfg,
	}, nil
}
