// Package pipeline sequences field mapping, rendering, optional format
// conversion and artifact publishing for one report-generation request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/campusreports/report-server/pkg/domain/fieldmap"
	"github.com/campusreports/report-server/pkg/domain/render"
	"github.com/campusreports/report-server/pkg/observability"
	"github.com/campusreports/report-server/pkg/publish"
	"github.com/campusreports/report-server/pkg/types"

	shared "github.com/campusreports/report-server/pkg"
)

// Converter is the optional format-conversion step. Implementations
// block until the converted bytes are available or the attempt is
// abandoned.
type Converter interface {
	Convert(ctx context.Context, data []byte, filename, inputFormat, outputFormat string) ([]byte, error)
}

// Pipeline owns one request's pass through the four stages. Stateless
// across requests; concurrent Generate calls for the same report race
// on the final artifact reference (last write wins, by design of the
// publisher).
type Pipeline struct {
	DB        shared.Database
	Renderer  render.Renderer
	Converter Converter // nil skips conversion entirely
	Publisher *publish.Publisher
	Schema    fieldmap.SubjectSchema

	// TargetFormat is the conversion output format ("pdf"). Ignored when
	// Converter is nil.
	TargetFormat string

	// TempRoot hosts the per-run scratch directory. Empty uses the OS
	// default. Every run removes its scratch directory on all exit paths.
	TempRoot string

	Logger *slog.Logger
}

// Request is the already-validated parameter set for one run.
type Request struct {
	ReportID         string
	Tutor            string
	Conclusions      string
	Recommendations  string
	PresentationDate string
}

// Response carries the artifact URL. Warning is set on degraded
// success (orphaned artifact).
type Response struct {
	URL     string
	Warning string
}

// Generate runs the full sequence. Errors are the taxonomy in
// pkg/types; callers map them to HTTP statuses.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Response, error) {
	logger := p.logger().With("report_id", req.ReportID)

	resp, err := p.generate(ctx, logger, req)
	observability.RecordPipelineRun(outcomeFor(err))
	return resp, err
}

func (p *Pipeline) generate(ctx context.Context, logger *slog.Logger, req Request) (*Response, error) {
	if req.ReportID == "" {
		return nil, &types.ValidationError{Msg: "reportId is required"}
	}

	report, err := p.DB.GetReport(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}

	if req.Tutor == "" {
		name, err := p.DB.FindTutorName(ctx, req.ReportID)
		if err != nil {
			logger.Warn("Tutor lookup failed, leaving tutor field empty", "error", err)
		} else {
			req.Tutor = name
		}
	}

	activities, err := p.DB.ListApprovedActivities(ctx, req.ReportID)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}

	fields, err := fieldmap.Build(report, activities, p.Schema.For(report.Program, report.Cycle), fieldmap.RequestFields{
		Tutor:            req.Tutor,
		Conclusions:      req.Conclusions,
		Recommendations:  req.Recommendations,
		PresentationDate: req.PresentationDate,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Field map built", "sections", len(fields.Subjects))

	rendered, err := p.Renderer.Render(fields)
	if err != nil {
		return nil, err
	}
	logger.Info("Document rendered", "bytes", len(rendered))

	// Scratch space for the run. Removed on every exit path; nothing
	// below may write outside it.
	scratch, err := os.MkdirTemp(p.TempRoot, "reportgen-")
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	final := rendered
	contentType := shared.ContentTypeDocx
	if p.Converter != nil && p.TargetFormat != "" {
		srcPath := filepath.Join(scratch, "report.docx")
		if err := os.WriteFile(srcPath, rendered, 0o600); err != nil {
			return nil, fmt.Errorf("spool rendered document: %w", err)
		}

		started := time.Now()
		converted, err := p.Converter.Convert(ctx, rendered, "report.docx", "docx", p.TargetFormat)
		observability.RecordConversionDuration(time.Since(started))
		if err != nil {
			return nil, err
		}

		outPath := filepath.Join(scratch, "report."+p.TargetFormat)
		if err := os.WriteFile(outPath, converted, 0o600); err != nil {
			return nil, fmt.Errorf("spool converted document: %w", err)
		}
		final = converted
		contentType = contentTypeFor(p.TargetFormat)
		logger.Info("Document converted", "format", p.TargetFormat, "bytes", len(final))
	}

	result, err := p.Publisher.Publish(ctx, req.ReportID, final, contentType)
	if err != nil {
		return nil, err
	}

	resp := &Response{URL: result.Artifact.PublicURL}
	if result.Orphaned {
		resp.Warning = "artifact stored but report reference update failed"
	}
	logger.Info("Report published", "key", result.Artifact.StorageKey, "orphaned", result.Orphaned)
	return resp, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func contentTypeFor(format string) string {
	switch format {
	case "pdf":
		return shared.ContentTypePDF
	case "docx":
		return shared.ContentTypeDocx
	default:
		return "application/octet-stream"
	}
}

func outcomeFor(err error) string {
	if err == nil {
		return "success"
	}
	var (
		validation *types.ValidationError
		renderErr  *types.RenderError
		convErr    *types.ConversionError
		convTO     *types.ConversionTimeout
		pubErr     *types.PublishError
	)
	switch {
	case errors.Is(err, types.ErrReportNotFound), errors.As(err, &validation):
		return "validation"
	case errors.As(err, &renderErr):
		return "render"
	case errors.As(err, &convErr), errors.As(err, &convTO):
		return "conversion"
	case errors.As(err, &pubErr):
		return "publish"
	default:
		return "internal"
	}
}
