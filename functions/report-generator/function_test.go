package reportgenerator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campusreports/report-server/pkg/domain/fieldmap"
	"github.com/campusreports/report-server/pkg/pipeline"
	"github.com/campusreports/report-server/pkg/publish"
	"github.com/campusreports/report-server/pkg/testing/mocks"
	"github.com/campusreports/report-server/pkg/types"
)

type stubRenderer struct{ out []byte }

func (r *stubRenderer) Render(fields *fieldmap.FieldMap) ([]byte, error) {
	return r.out, nil
}

// installTestPipeline swaps the lazily-initialized pipeline for one
// backed by mocks, restoring it when the test ends.
func installTestPipeline(t *testing.T, db *mocks.MockDatabase) {
	t.Helper()
	prev := pipe
	pipe = &pipeline.Pipeline{
		DB:       db,
		Renderer: &stubRenderer{out: []byte("docx-bytes")},
		Publisher: &publish.Publisher{
			Store:  &mocks.MockBlobStore{},
			DB:     db,
			Bucket: "artifacts",
		},
		Schema:   fieldmap.SubjectSchema{"5": {"Web Technologies"}},
		TempRoot: t.TempDir(),
	}
	t.Cleanup(func() { pipe = prev })
}

func testDB() *mocks.MockDatabase {
	return &mocks.MockDatabase{
		GetReportFunc: func(ctx context.Context, id string) (*types.Report, error) {
			if id != "R1" {
				return nil, types.ErrReportNotFound
			}
			return &types.Report{ReportID: "R1", Term: "2025-2", Cycle: "5"}, nil
		},
		ListApprovedActivitiesFunc: func(ctx context.Context, reportID string) ([]*types.ActivityRecord, error) {
			return []*types.ActivityRecord{
				{
					ReportID: "R1", ActivityID: "a1",
					Date:  time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
					State: types.StateApproved,
					Contributions: []*types.ContributionRecord{
						{Subject: "Web Technologies", Problems: "p1"},
					},
				},
			}, nil
		},
	}
}

func post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	GenerateReport(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) GenerateReportResponse {
	t.Helper()
	var resp GenerateReportResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode response: %v", err)
	}
	return resp
}

func TestGenerateReport_Success(t *testing.T) {
	installTestPipeline(t, testDB())

	w := post(t, `{"reportId": "R1", "tutor": "T. Vega"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode(t, w)
	if resp.URL == "" {
		t.Error("Expected artifact url in response")
	}
	if resp.Error != "" {
		t.Errorf("Unexpected error field: %q", resp.Error)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}
}

func TestGenerateReport_MissingReportID(t *testing.T) {
	installTestPipeline(t, testDB())

	w := post(t, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp.Error == "" {
		t.Error("Expected error message")
	}
}

func TestGenerateReport_NoApprovedActivities(t *testing.T) {
	db := testDB()
	db.ListApprovedActivitiesFunc = func(ctx context.Context, reportID string) ([]*types.ActivityRecord, error) {
		return nil, nil
	}
	installTestPipeline(t, db)

	w := post(t, `{"reportId": "R1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGenerateReport_UnknownReport(t *testing.T) {
	installTestPipeline(t, testDB())

	w := post(t, `{"reportId": "nope"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp.Error != "Report not found" {
		t.Errorf("Unexpected error message: %q", resp.Error)
	}
}

func TestGenerateReport_InvalidBody(t *testing.T) {
	installTestPipeline(t, testDB())

	w := post(t, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

func TestGenerateReport_MethodNotAllowed(t *testing.T) {
	installTestPipeline(t, testDB())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	GenerateReport(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", w.Code)
	}
}
