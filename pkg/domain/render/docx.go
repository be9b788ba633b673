package render

import (
	"bytes"
	"context"
	"fmt"
	"os"

	docx "github.com/lukasjarosch/go-docx"

	shared "github.com/campusreports/report-server/pkg"
	"github.com/campusreports/report-server/pkg/domain/fieldmap"
	"github.com/campusreports/report-server/pkg/types"
)

// DocxRenderer renders the report docx template. The template bytes are
// loaded once at construction; every Render opens a fresh document from
// them so runs never share engine state.
type DocxRenderer struct {
	template []byte
	layout   Layout
}

func NewDocxRenderer(template []byte, layout Layout) *DocxRenderer {
	return &DocxRenderer{template: template, layout: layout}
}

// LoadTemplate fetches the template bytes. A local path wins (dev and
// tests); otherwise the fixed object in template storage is used.
func LoadTemplate(ctx context.Context, store shared.BlobStore, bucket, object, localPath string) ([]byte, error) {
	if localPath != "" {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return nil, fmt.Errorf("template file %s: %w", localPath, err)
		}
		return data, nil
	}
	data, err := store.Read(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("template object gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

func (r *DocxRenderer) Render(fields *fieldmap.FieldMap) ([]byte, error) {
	flat, err := r.layout.Flatten(fields)
	if err != nil {
		return nil, err
	}

	doc, err := docx.OpenBytes(r.template)
	if err != nil {
		return nil, &types.RenderError{Diag: "template is not a readable docx", Err: err}
	}

	placeholders := make(docx.PlaceholderMap, len(flat))
	for k, v := range flat {
		placeholders[k] = v
	}

	// ReplaceAll fails on any key with no matching placeholder; that is
	// a mapping/template mismatch and is never retried.
	if err := doc.ReplaceAll(placeholders); err != nil {
		return nil, &types.RenderError{Diag: "placeholder resolution failed", Err: err}
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, &types.RenderError{Diag: "writing rendered document", Err: err}
	}
	return buf.Bytes(), nil
}
