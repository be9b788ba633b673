// Package publish writes final report bytes to object storage under a
// deterministic key and records the artifact against the source report.
package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	shared "github.com/campusreports/report-server/pkg"
	infrapubsub "github.com/campusreports/report-server/pkg/infrastructure/pubsub"
	"github.com/campusreports/report-server/pkg/observability"
	"github.com/campusreports/report-server/pkg/types"
)

// Publisher persists artifacts and updates the owning report document.
type Publisher struct {
	Store  shared.BlobStore
	DB     shared.Database
	Pub    shared.Publisher
	Bucket string
	Logger *slog.Logger
}

// Result of one publish. Orphaned means the artifact was stored but the
// report reference update failed: the URL is valid, the report document
// still points at the previous artifact.
type Result struct {
	Artifact *types.ReportArtifact
	Orphaned bool
}

var extByContentType = map[string]string{
	shared.ContentTypePDF:  ".pdf",
	shared.ContentTypeDocx: ".docx",
}

// Publish stores data under reports/<reportId>/<contentHash>.<ext>.
// The key is derived from the content, so regenerating an unchanged
// report overwrites its own artifact and changed content never
// collides with it. A fresh download token is minted per artifact.
func (p *Publisher) Publish(ctx context.Context, reportID string, data []byte, contentType string) (*Result, error) {
	key := p.StorageKey(reportID, data, contentType)
	token := uuid.NewString()

	attrs := &shared.BlobAttrs{
		ContentType: contentType,
		Metadata: map[string]string{
			"firebaseStorageDownloadTokens": token,
		},
	}
	if err := p.Store.Write(ctx, p.Bucket, key, data, attrs); err != nil {
		return nil, &types.PublishError{Key: key, Err: err}
	}

	artifact := &types.ReportArtifact{
		ReportID:    reportID,
		StorageKey:  key,
		PublicURL:   p.artifactURL(key, token),
		AccessToken: token,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}

	result := &Result{Artifact: artifact}

	// The reference update is not atomic with the storage write. A
	// failure here leaves a reachable but unreferenced artifact; that is
	// a degraded success, not a pipeline failure.
	err := p.DB.UpdateReport(ctx, reportID, map[string]interface{}{
		"artifact_url":          artifact.PublicURL,
		"artifact_key":          artifact.StorageKey,
		"artifact_content_type": artifact.ContentType,
		"artifact_generated_at": artifact.CreatedAt,
	})
	if err != nil {
		result.Orphaned = true
		observability.RecordOrphanedArtifact()
		p.logger().Warn("Artifact stored but report update failed",
			"report_id", reportID, "key", key, "error", err)
	}

	p.announce(ctx, artifact)
	return result, nil
}

func (p *Publisher) announce(ctx context.Context, artifact *types.ReportArtifact) {
	if p.Pub == nil {
		return
	}
	e, err := infrapubsub.NewCloudEvent("/report-pipeline", "com.campusreports.report.generated", artifact)
	if err != nil {
		p.logger().Warn("Failed to build artifact event", "error", err)
		return
	}
	if _, err := p.Pub.PublishCloudEvent(ctx, shared.TopicReportGenerated, e); err != nil {
		// Best effort; the artifact itself is already durable.
		p.logger().Warn("Failed to publish artifact event", "report_id", artifact.ReportID, "error", err)
	}
}

// StorageKey is exported so callers can predict where an artifact for
// given content will land.
func (p *Publisher) StorageKey(reportID string, data []byte, contentType string) string {
	sum := sha256.Sum256(data)
	ext := extByContentType[contentType]
	if ext == "" {
		ext = ".bin"
	}
	return "reports/" + foldKey(reportID) + "/" + hex.EncodeToString(sum[:8]) + ext
}

func (p *Publisher) artifactURL(key, token string) string {
	return "https://firebasestorage.googleapis.com/v0/b/" + p.Bucket +
		"/o/" + url.PathEscape(key) + "?alt=media&token=" + token
}

func (p *Publisher) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

var keyFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKey strips diacritics and spaces so ids taken from human-entered
// labels produce stable object names.
func foldKey(s string) string {
	folded, _, err := transform.String(keyFolder, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, folded)
}
