// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"
	"github.com/poiesic/quickrag/core"
)

// ContentTypePDF is the only content type the converter accepts.
const ContentTypePDF = "application/pdf"

// Metadata keys set by the converter.
const (
	MetaFileName    = "file_name"
	MetaContentType = "content_type"
)

var pdfMagic = []byte("%PDF-")

// ExtractFunc extracts plain text and document metadata from a PDF.
type ExtractFunc func(r io.Reader) (string, map[string]string, error)

// PDFConverter extracts text from PDF sources with docconv.
type PDFConverter struct {
	extract ExtractFunc
}

var _ Converter = (*PDFConverter)(nil)

// ConverterOption configures a PDFConverter.
type ConverterOption func(*PDFConverter)

// WithExtractor replaces the docconv extraction backend.
func WithExtractor(fn ExtractFunc) ConverterOption {
	return func(c *PDFConverter) {
		if fn != nil {
			c.extract = fn
		}
	}
}

// NewPDFConverter creates a converter backed by docconv.ConvertPDF, which
// shells out to pdftotext.
func NewPDFConverter(opts ...ConverterOption) *PDFConverter {
	c := &PDFConverter{extract: docconv.ConvertPDF}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Spec implements Component.
func (c *PDFConverter) Spec() ComponentSpec {
	return ComponentSpec{
		Type: "pipeline.PDFConverter",
		Params: map[string]any{
			"content_type": ContentTypePDF,
		},
	}
}

// Convert returns one document holding the text of src. Input that does not
// start with a PDF header, or from which no text can be extracted, fails with
// core.ErrConversion. The declared content type is advisory.
func (c *PDFConverter) Convert(ctx context.Context, src Source) ([]*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The header bytes decide. The declared type only shows up in errors.
	if !bytes.HasPrefix(src.Data, pdfMagic) {
		if src.ContentType != "" {
			return nil, fmt.Errorf("%w: %s: missing PDF header (declared %q)", core.ErrConversion, src.Name, src.ContentType)
		}
		return nil, fmt.Errorf("%w: %s: missing PDF header", core.ErrConversion, src.Name)
	}

	text, pdfMeta, err := c.extract(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConversion, src.Name, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConversion, src.Name, core.ErrEmptyContent)
	}

	meta := make(map[string]string, len(pdfMeta)+2)
	for k, v := range pdfMeta {
		if v = strings.TrimSpace(v); v != "" {
			meta["pdf_"+strings.ToLower(k)] = v
		}
	}
	if src.Name != "" {
		meta[MetaFileName] = src.Name
	}
	meta[MetaContentType] = ContentTypePDF

	return []*core.Document{core.NewDocument(text, meta)}, nil
}
