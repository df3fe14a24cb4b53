package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"os"
	"sort"
	"strings"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/layout"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/pipeline"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
  <Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:styleId="Normal" w:default="1">
    <w:name w:val="Normal"/>
    <w:rPr><w:sz w:val="22"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:styleId="Heading1">
    <w:name w:val="heading 1"/>
    <w:basedOn w:val="Normal"/>
    <w:pPr><w:spacing w:before="240" w:after="120"/></w:pPr>
    <w:rPr><w:b/><w:sz w:val="32"/></w:rPr>
  </w:style>
  <w:style w:type="paragraph" w:styleId="Caption">
    <w:name w:val="caption"/>
    <w:basedOn w:val="Normal"/>
    <w:rPr><w:i/><w:sz w:val="18"/></w:rPr>
  </w:style>
</w:styles>`

// DocxOptions controls the DOCX rendition.
type DocxOptions struct {
	// Bilingual keeps the original text as a dimmed paragraph above each
	// translation.
	Bilingual bool
}

// WriteDocx renders the document as a minimal OOXML package, one
// paragraph per segment in reading order, with a page break between
// logical pages.
func WriteDocx(path string, result *pipeline.Result, translations map[int64]string, opts DocxOptions) error {
	var body bytes.Buffer
	for i, page := range result.Pages {
		if i > 0 {
			body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		}
		writePageParagraphs(&body, page, translations, opts)
	}

	var doc bytes.Buffer
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	doc.Write(body.Bytes())
	doc.WriteString(`</w:body></w:document>`)

	f, err := os.Create(path)
	if err != nil {
		return types.NewAppError(types.ErrExport, "failed to create DOCX file", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := []struct {
		name    string
		content []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/document.xml", doc.Bytes()},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			zw.Close()
			return types.NewAppError(types.ErrExport, "failed to add DOCX part "+part.name, err)
		}
		if _, err := w.Write(part.content); err != nil {
			zw.Close()
			return types.NewAppError(types.ErrExport, "failed to write DOCX part "+part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return types.NewAppError(types.ErrExport, "failed to finalize DOCX file", err)
	}

	logger.Info("DOCX written",
		logger.String("path", path),
		logger.Int("pages", len(result.Pages)))
	return nil
}

func writePageParagraphs(body *bytes.Buffer, page pipeline.Page, translations map[int64]string, opts DocxOptions) {
	segs := make([]layout.Segment, len(page.Segments))
	copy(segs, page.Segments)
	sort.Slice(segs, func(i, j int) bool {
		return segs[i].ReadingOrder < segs[j].ReadingOrder
	})

	for _, seg := range segs {
		translated, hasTranslation := translations[seg.ID]
		text := seg.Text
		if hasTranslation {
			text = translated
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if opts.Bilingual && hasTranslation && strings.TrimSpace(seg.Text) != "" {
			writeParagraph(body, styleFor(seg.Type), seg.Text, true)
		}
		writeParagraph(body, styleFor(seg.Type), text, false)
	}
}

func writeParagraph(body *bytes.Buffer, style, text string, dimmed bool) {
	body.WriteString(`<w:p><w:pPr><w:pStyle w:val="`)
	body.WriteString(style)
	body.WriteString(`"/></w:pPr><w:r>`)
	if dimmed {
		body.WriteString(`<w:rPr><w:color w:val="808080"/><w:i/></w:rPr>`)
	}
	body.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(body, []byte(text))
	body.WriteString(`</w:t></w:r></w:p>`)
}

func styleFor(t layout.ElementType) string {
	switch t {
	case layout.TypeHeading:
		return "Heading1"
	case layout.TypeCaption:
		return "Caption"
	default:
		return "Normal"
	}
}
