package publish

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/campusreports/report-server/pkg"
	"github.com/campusreports/report-server/pkg/testing/mocks"
	"github.com/campusreports/report-server/pkg/types"
)

func TestPublish_Success(t *testing.T) {
	var (
		wroteBucket, wroteKey string
		wroteAttrs            *shared.BlobAttrs
		updated               map[string]interface{}
		published             []event.Event
	)

	p := &Publisher{
		Store: &mocks.MockBlobStore{
			WriteFunc: func(ctx context.Context, bucket, object string, data []byte, attrs *shared.BlobAttrs) error {
				wroteBucket, wroteKey, wroteAttrs = bucket, object, attrs
				return nil
			},
		},
		DB: &mocks.MockDatabase{
			UpdateReportFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
				updated = data
				return nil
			},
		},
		Pub: &mocks.MockPublisher{
			PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
				published = append(published, e)
				return "msg-1", nil
			},
		},
		Bucket: "artifacts",
	}

	result, err := p.Publish(context.Background(), "R1", []byte("%PDF"), shared.ContentTypePDF)
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if result.Orphaned {
		t.Error("Expected clean publish, got orphaned")
	}

	if wroteBucket != "artifacts" {
		t.Errorf("Wrote to bucket %q", wroteBucket)
	}
	if !strings.HasPrefix(wroteKey, "reports/R1/") || !strings.HasSuffix(wroteKey, ".pdf") {
		t.Errorf("Unexpected storage key %q", wroteKey)
	}
	if wroteAttrs.ContentType != shared.ContentTypePDF {
		t.Errorf("Content type %q", wroteAttrs.ContentType)
	}

	token := wroteAttrs.Metadata["firebaseStorageDownloadTokens"]
	if token == "" {
		t.Fatal("Expected a download token in object metadata")
	}
	if result.Artifact.AccessToken != token {
		t.Error("Artifact token must match the stored metadata token")
	}
	if !strings.Contains(result.Artifact.PublicURL, "token="+token) {
		t.Errorf("URL must carry the token: %s", result.Artifact.PublicURL)
	}
	if !strings.Contains(result.Artifact.PublicURL, "reports%2FR1%2F") {
		t.Errorf("URL must path-escape the key: %s", result.Artifact.PublicURL)
	}

	if updated["artifact_url"] != result.Artifact.PublicURL || updated["artifact_key"] != wroteKey {
		t.Errorf("Report update carried wrong reference: %v", updated)
	}
	if len(published) != 1 {
		t.Errorf("Expected one artifact event, got %d", len(published))
	}
}

func TestPublish_FreshTokenPerArtifact(t *testing.T) {
	p := &Publisher{Store: &mocks.MockBlobStore{}, DB: &mocks.MockDatabase{}, Bucket: "artifacts"}

	a, err := p.Publish(context.Background(), "R1", []byte("%PDF"), shared.ContentTypePDF)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Publish(context.Background(), "R1", []byte("%PDF"), shared.ContentTypePDF)
	if err != nil {
		t.Fatal(err)
	}

	// Same content, same key, but never a reused token.
	if a.Artifact.StorageKey != b.Artifact.StorageKey {
		t.Error("Identical content should map to the same key")
	}
	if a.Artifact.AccessToken == b.Artifact.AccessToken {
		t.Error("Regeneration must mint a fresh token")
	}
}

func TestPublish_StorageFailure(t *testing.T) {
	dbTouched := false
	p := &Publisher{
		Store: &mocks.MockBlobStore{
			WriteFunc: func(ctx context.Context, bucket, object string, data []byte, attrs *shared.BlobAttrs) error {
				return errors.New("bucket gone")
			},
		},
		DB: &mocks.MockDatabase{
			UpdateReportFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
				dbTouched = true
				return nil
			},
		},
		Bucket: "artifacts",
	}

	_, err := p.Publish(context.Background(), "R1", []byte("%PDF"), shared.ContentTypePDF)
	if err == nil {
		t.Fatal("Expected error for storage failure")
	}
	if _, ok := err.(*types.PublishError); !ok {
		t.Fatalf("Expected *types.PublishError, got %T", err)
	}
	if dbTouched {
		t.Error("Report must not be updated when the artifact was never stored")
	}
}

func TestPublish_OrphanedArtifact(t *testing.T) {
	p := &Publisher{
		Store: &mocks.MockBlobStore{},
		DB: &mocks.MockDatabase{
			UpdateReportFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
				return errors.New("firestore unavailable")
			},
		},
		Bucket: "artifacts",
	}

	result, err := p.Publish(context.Background(), "R1", []byte("%PDF"), shared.ContentTypePDF)
	if err != nil {
		t.Fatalf("Orphaned artifact is a degraded success, got error: %v", err)
	}
	if !result.Orphaned {
		t.Error("Expected Orphaned flag")
	}
	if result.Artifact.PublicURL == "" {
		t.Error("Orphaned result still carries a valid URL")
	}
}

func TestStorageKey(t *testing.T) {
	p := &Publisher{Bucket: "artifacts"}

	a := p.StorageKey("R1", []byte("content-a"), shared.ContentTypePDF)
	b := p.StorageKey("R1", []byte("content-b"), shared.ContentTypePDF)
	if a == b {
		t.Error("Different content must map to different keys")
	}
	if a != p.StorageKey("R1", []byte("content-a"), shared.ContentTypePDF) {
		t.Error("Key must be deterministic for identical content")
	}

	folded := p.StorageKey("Informática 5/B", []byte("x"), shared.ContentTypeDocx)
	if !strings.HasPrefix(folded, "reports/Informatica_5_B/") {
		t.Errorf("Key must fold unsafe characters, got %q", folded)
	}
	if !strings.HasSuffix(folded, ".docx") {
		t.Errorf("Key must carry the content-type extension, got %q", folded)
	}
}

func TestFoldKey(t *testing.T) {
	cases := map[string]string{
		"R1":             "R1",
		"Informática":    "Informatica",
		"ciclo 5":        "ciclo_5",
		"a/b":            "a_b",
		"Ética-Común":    "Etica-Comun",
	}
	for in, want := range cases {
		if got := foldKey(in); got != want {
			t.Errorf("foldKey(%q) = %q, want %q", in, got, want)
		}
	}
}
