package tender

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// Supported upload extensions.
const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"
)

// Document is one uploaded tender file. Immutable once built; the session
// owns it until all derived analyses complete or the session resets.
type Document struct {
	Name     string
	Data     []byte
	Ext      string
	MIMEType string

	// Ref is set once the document is registered with the extraction
	// service and cleared when the remote copy is released.
	Ref DocRef
}

// NewDocument validates an upload and wraps it. Unsupported extensions and
// oversized or empty payloads are rejected here so nothing downstream sees
// them; maxSize <= 0 means the default limit.
func NewDocument(name string, data []byte, maxSize int64) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ExtPDF && ext != ExtDOCX {
		return nil, fmt.Errorf("%s: %w (%s)", name, ErrUnsupportedType, ext)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyDocument)
	}
	if maxSize <= 0 {
		maxSize = DefaultConfig().MaxDocumentSize
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", name, ErrDocumentTooLarge, len(data))
	}

	mtype := mimetype.Detect(data)
	return &Document{
		Name:     name,
		Data:     data,
		Ext:      ext,
		MIMEType: mtype.String(),
	}, nil
}

// PlainText derives the raw text of the document for the deterministic
// date fallback: PDFs page by page, DOCX files as concatenated paragraphs.
func (d *Document) PlainText() (string, error) {
	switch d.Ext {
	case ExtPDF:
		return pdfPlainText(d.Data)
	case ExtDOCX:
		return docxPlainText(d.Data)
	}
	return "", fmt.Errorf("%s: %w (%s)", d.Name, ErrUnsupportedType, d.Ext)
}

func pdfPlainText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the rest.
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}

// docxPlainText walks word/document.xml and joins the text runs of each
// paragraph with newlines. The OOXML shapes involved (w:p and w:t) are
// stable across producers, so a token scan is all that is needed.
func docxPlainText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var docXML io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("open document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("docx has no word/document.xml")
	}
	defer docXML.Close()

	var (
		paragraphs []string
		current    strings.Builder
		inTextRun  bool
	)
	dec := xml.NewDecoder(docXML)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		case xml.CharData:
			if inTextRun {
				current.Write(t)
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return strings.Join(paragraphs, "\n"), nil
}
