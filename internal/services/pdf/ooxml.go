package pdf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	nsContentTypes = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsPackageRels  = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsDrawing      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsOfficeRels   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	relOfficeDocument = nsOfficeRels + "/officeDocument"
	relImage          = nsOfficeRels + "/image"

	emuPerInch = 914400
)

// relationship is one entry of a .rels part.
type relationship struct {
	ID     string
	Type   string
	Target string
}

func relsXML(rels []relationship) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Relationships xmlns="%s">`, nsPackageRels)
	for _, r := range rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"/>`, r.ID, r.Type, r.Target)
	}
	b.WriteString(`</Relationships>`)
	return []byte(b.String())
}

// contentTypesXML lists the png/rels/xml defaults plus one override per part.
func contentTypesXML(overrides map[string]string, order []string) []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Types xmlns="%s">`, nsContentTypes)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	for _, part := range order {
		fmt.Fprintf(&b, `<Override PartName="%s" ContentType="%s"/>`, part, overrides[part])
	}
	b.WriteString(`</Types>`)
	return []byte(b.String())
}

// packageWriter writes the parts of an OPC package in insertion order.
type packageWriter struct {
	buf bytes.Buffer
	zw  *zip.Writer
	err error
}

func newPackageWriter() *packageWriter {
	pw := &packageWriter{}
	pw.zw = zip.NewWriter(&pw.buf)
	return pw
}

func (pw *packageWriter) add(name string, data []byte) {
	if pw.err != nil {
		return
	}
	w, err := pw.zw.Create(name)
	if err != nil {
		pw.err = fmt.Errorf("failed to add %s: %w", name, err)
		return
	}
	if _, err := w.Write(data); err != nil {
		pw.err = fmt.Errorf("failed to write %s: %w", name, err)
	}
}

func (pw *packageWriter) bytes() ([]byte, error) {
	if pw.err != nil {
		return nil, pw.err
	}
	if err := pw.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize package: %w", err)
	}
	return pw.buf.Bytes(), nil
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func emu(inches float64) int64 {
	return int64(inches*emuPerInch + 0.5)
}
