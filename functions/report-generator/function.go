// Package reportgenerator exposes the report-generation endpoint: it
// assembles a report's approved activities into a rendered document,
// optionally converts it, and returns the stored artifact's URL.
package reportgenerator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/campusreports/report-server/pkg/bootstrap"
	"github.com/campusreports/report-server/pkg/domain/fieldmap"
	"github.com/campusreports/report-server/pkg/domain/render"
	"github.com/campusreports/report-server/pkg/infrastructure/sentry"
	"github.com/campusreports/report-server/pkg/integrations/cloudconvert"
	"github.com/campusreports/report-server/pkg/pipeline"
	"github.com/campusreports/report-server/pkg/publish"
	"github.com/campusreports/report-server/pkg/types"
)

var (
	svc      *bootstrap.Service
	pipe     *pipeline.Pipeline
	initOnce sync.Once
	initErr  error
)

func init() {
	functions.HTTP("GenerateReport", GenerateReport)
}

func initService(ctx context.Context) (*pipeline.Pipeline, error) {
	if pipe != nil {
		return pipe, nil
	}
	initOnce.Do(func() {
		baseSvc, err := bootstrap.NewService(ctx)
		if err != nil {
			slog.Error("Failed to initialize service", "error", err)
			initErr = err
			return
		}
		svc = baseSvc

		p, err := buildPipeline(ctx, baseSvc)
		if err != nil {
			slog.Error("Failed to build pipeline", "error", err)
			initErr = err
			return
		}
		pipe = p
	})
	return pipe, initErr
}

// buildPipeline wires the pipeline from an initialized service
// container. Separate from initService so tests can build against
// mocks.
func buildPipeline(ctx context.Context, svc *bootstrap.Service) (*pipeline.Pipeline, error) {
	cfg := svc.Config

	if err := sentry.Init(sentry.Config{
		DSN:         cfg.SentryDSN,
		ServerName:  "report-generator",
		Environment: cfg.ProjectID,
	}, slog.Default()); err != nil {
		slog.Warn("Sentry init failed, continuing without error tracking", "error", err)
	}

	templateBytes, err := render.LoadTemplate(ctx, svc.Store, cfg.TemplateBucket, cfg.TemplateObject, cfg.TemplatePath)
	if err != nil {
		return nil, err
	}
	layout := render.DefaultLayout()
	if cfg.TemplateSubjectSlots > 0 {
		layout.SubjectSlots = cfg.TemplateSubjectSlots
	}

	schema, err := fieldmap.ParseSchema(cfg.SubjectOrderJSON)
	if err != nil {
		return nil, err
	}
	if schema == nil {
		schema = fieldmap.DefaultSchema
	}

	var converter pipeline.Converter
	if cfg.ConvertTo != "" && cfg.CloudConvertAPIKey != "" {
		converter = cloudconvert.NewClient(cloudconvert.Config{
			BaseURL:      cfg.CloudConvertAPIURL,
			APIKey:       cfg.CloudConvertAPIKey,
			PollInterval: cfg.ConvertPollInterval,
			MaxWait:      cfg.ConvertMaxWait,
			Logger:       slog.Default(),
		})
	}

	return &pipeline.Pipeline{
		DB:       svc.DB,
		Renderer: render.NewDocxRenderer(templateBytes, layout),
		Converter: converter,
		Publisher: &publish.Publisher{
			Store:  svc.Store,
			DB:     svc.DB,
			Pub:    svc.Pub,
			Bucket: cfg.ReportsBucket,
			Logger: slog.Default(),
		},
		Schema:       schema,
		TargetFormat: cfg.ConvertTo,
		Logger:       slog.Default(),
	}, nil
}

// GenerateReportRequest is the expected request body
type GenerateReportRequest struct {
	ReportID         string `json:"reportId"`
	Tutor            string `json:"tutor,omitempty"`
	Conclusions      string `json:"conclusions,omitempty"`
	Recommendations  string `json:"recommendations,omitempty"`
	PresentationDate string `json:"presentationDate,omitempty"`
}

// GenerateReportResponse is the response body
type GenerateReportResponse struct {
	URL     string `json:"url,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

// GenerateReport is the HTTP entry point
func GenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, GenerateReportResponse{Error: "Method not allowed"})
		return
	}

	p, err := initService(ctx)
	if err != nil {
		slog.Error("Service init failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, GenerateReportResponse{Error: "Internal server error"})
		return
	}

	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateReportResponse{Error: "Invalid request body"})
		return
	}

	submitter, ok := verifySubmitter(ctx, r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, GenerateReportResponse{Error: "Unauthorized"})
		return
	}

	logger := slog.Default().With("report_id", req.ReportID)
	if submitter != "" {
		logger = logger.With("submitter", submitter)
	}
	logger.Info("Report generation requested")

	resp, err := p.Generate(ctx, pipeline.Request{
		ReportID:         req.ReportID,
		Tutor:            req.Tutor,
		Conclusions:      req.Conclusions,
		Recommendations:  req.Recommendations,
		PresentationDate: req.PresentationDate,
	})
	if err != nil {
		writeError(w, logger, req.ReportID, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateReportResponse{URL: resp.URL, Warning: resp.Warning})
}

// verifySubmitter checks the bearer ID token when auth is enabled.
// Returns the submitter uid ("" when auth is disabled) and whether the
// request may proceed.
func verifySubmitter(ctx context.Context, r *http.Request) (string, bool) {
	if svc == nil || svc.Auth == nil {
		return "", true
	}

	authHeader := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}

	token, err := svc.Auth.VerifyIDToken(ctx, strings.TrimPrefix(authHeader, bearerPrefix))
	if err != nil {
		slog.Warn("Token verification failed", "error", err)
		return "", false
	}
	return token.UID, true
}

func writeError(w http.ResponseWriter, logger *slog.Logger, reportID string, err error) {
	var validation *types.ValidationError
	switch {
	case errors.As(err, &validation):
		logger.Warn("Rejected request", "stage", "mapping", "error", err)
		writeJSON(w, http.StatusBadRequest, GenerateReportResponse{Error: err.Error()})
	case errors.Is(err, types.ErrReportNotFound):
		logger.Warn("Unknown report", "stage", "mapping")
		writeJSON(w, http.StatusNotFound, GenerateReportResponse{Error: "Report not found"})
	default:
		logger.Error("Pipeline failed", "stage", stageFor(err), "error", err)
		sentry.CaptureException(err, map[string]interface{}{"report_id": reportID}, logger)
		writeJSON(w, http.StatusInternalServerError, GenerateReportResponse{Error: err.Error()})
	}
}

func stageFor(err error) string {
	var (
		renderErr *types.RenderError
		convErr   *types.ConversionError
		convTO    *types.ConversionTimeout
		pubErr    *types.PublishError
	)
	switch {
	case errors.As(err, &renderErr):
		return "render"
	case errors.As(err, &convErr), errors.As(err, &convTO):
		return "conversion"
	case errors.As(err, &pubErr):
		return "publish"
	default:
		return "pipeline"
	}
}

func writeJSON(w http.ResponseWriter, status int, body GenerateReportResponse) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
