package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/campusreports/report-server/pkg/domain/fieldmap"
	"github.com/campusreports/report-server/pkg/testing/mocks"
	"github.com/campusreports/report-server/pkg/types"
)

func TestFlatten_PadsEmptySlots(t *testing.T) {
	layout := DefaultLayout()
	fm := &fieldmap.FieldMap{
		Scalars: map[string]string{"report_id": "R1", "tutor": ""},
		Subjects: []fieldmap.SubjectSection{
			{Subject: "Web Technologies", Problems: "p1", Actions: "a1", Responsible: "r1", Results: "s1"},
			{Subject: "Ethics"},
		},
	}

	flat, err := layout.Flatten(fm)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}

	// 2 scalars + 6 slots * 5 fields
	if len(flat) != 2+6*5 {
		t.Errorf("Expected %d keys, got %d", 2+6*5, len(flat))
	}
	if flat["subject_1"] != "Web Technologies" || flat["problems_1"] != "p1" {
		t.Errorf("Slot 1 not populated: %q %q", flat["subject_1"], flat["problems_1"])
	}
	if flat["subject_2"] != "Ethics" || flat["problems_2"] != "" {
		t.Errorf("Slot 2 not populated: %q %q", flat["subject_2"], flat["problems_2"])
	}

	// Unused slots exist and are empty so no placeholder stays unresolved.
	for i := 3; i <= 6; i++ {
		for _, pattern := range []string{"subject_%d", "problems_%d", "actions_%d", "responsible_%d", "results_%d"} {
			key := fmt.Sprintf(pattern, i)
			v, ok := flat[key]
			if !ok {
				t.Errorf("Key %q missing", key)
			}
			if v != "" {
				t.Errorf("Key %q should be empty, got %q", key, v)
			}
		}
	}

	if flat["report_id"] != "R1" {
		t.Errorf("Scalar not carried through: %q", flat["report_id"])
	}
	if v, ok := flat["tutor"]; !ok || v != "" {
		t.Errorf("Empty scalar must survive as empty string, got %q (present=%v)", v, ok)
	}
}

func TestFlatten_TooManySections(t *testing.T) {
	layout := DefaultLayout()
	layout.SubjectSlots = 1
	fm := &fieldmap.FieldMap{
		Scalars: map[string]string{},
		Subjects: []fieldmap.SubjectSection{
			{Subject: "A"}, {Subject: "B"},
		},
	}

	_, err := layout.Flatten(fm)
	if err == nil {
		t.Fatal("Expected error when sections exceed template slots")
	}
	if _, ok := err.(*types.RenderError); !ok {
		t.Fatalf("Expected *types.RenderError, got %T", err)
	}
}

func TestLoadTemplate_LocalPathWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.docx")
	if err := os.WriteFile(path, []byte("local-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}

	reads := 0
	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			reads++
			return nil, nil
		},
	}
	data, err := LoadTemplate(context.Background(), store, "bucket", "object", path)
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if string(data) != "local-bytes" {
		t.Errorf("Expected local file contents, got %q", data)
	}
	if reads != 0 {
		t.Error("Local path set: object storage must not be consulted")
	}
}

func TestLoadTemplate_FallsBackToStore(t *testing.T) {
	store := &mocks.MockBlobStore{
		ReadFunc: func(ctx context.Context, bucket, object string) ([]byte, error) {
			if bucket != "bucket" || object != "object" {
				t.Errorf("Unexpected read target %s/%s", bucket, object)
			}
			return []byte("remote-bytes"), nil
		},
	}
	data, err := LoadTemplate(context.Background(), store, "bucket", "object", "")
	if err != nil {
		t.Fatalf("LoadTemplate failed: %v", err)
	}
	if string(data) != "remote-bytes" {
		t.Errorf("Expected stored template, got %q", data)
	}
}

func TestLoadTemplate_MissingLocalFile(t *testing.T) {
	_, err := LoadTemplate(context.Background(), &mocks.MockBlobStore{}, "bucket", "object", "/does/not/exist.docx")
	if err == nil {
		t.Fatal("Expected error for missing template file")
	}
}
