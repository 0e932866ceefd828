package pdf

import (
	"fmt"
	"math"
	"strings"

	"github.com/phambaophuc/convert-toolkit/internal/models"
	"github.com/phambaophuc/convert-toolkit/internal/services/processor"
)

const (
	contentTypePptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"

	// 16:9 widescreen
	slideWidthIn  = 40.0 / 3
	slideHeightIn = 7.5

	ctPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctSlideMaster  = "application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"
	ctSlideLayout  = "application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"
	ctSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctTheme        = "application/vnd.openxmlformats-officedocument.theme+xml"

	relSlideMaster = nsOfficeRels + "/slideMaster"
	relSlideLayout = nsOfficeRels + "/slideLayout"
	relSlide       = nsOfficeRels + "/slide"
	relTheme       = nsOfficeRels + "/theme"
)

const emptyGroup = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`

const whiteBackground = `<p:bg><p:bgPr><a:solidFill><a:srgbClr val="FFFFFF"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>`

// BuildPptx puts each page rendering on its own widescreen slide, scaled to
// fit and centered on a white background. Progress runs from 86 to 99.
func BuildPptx(content *Content, progress models.ProgressFunc) ([]byte, error) {
	pw := newPackageWriter()
	overrides := map[string]string{
		"/ppt/presentation.xml":              ctPresentation,
		"/ppt/slideMasters/slideMaster1.xml": ctSlideMaster,
		"/ppt/slideLayouts/slideLayout1.xml": ctSlideLayout,
		"/ppt/theme/theme1.xml":              ctTheme,
	}
	order := []string{
		"/ppt/presentation.xml",
		"/ppt/slideMasters/slideMaster1.xml",
		"/ppt/slideLayouts/slideLayout1.xml",
		"/ppt/theme/theme1.xml",
	}
	presRels := []relationship{
		{ID: "rId1", Type: relSlideMaster, Target: "slideMasters/slideMaster1.xml"},
		{ID: "rId2", Type: relTheme, Target: "theme/theme1.xml"},
	}

	var slideIDs strings.Builder
	total := len(content.Pages)
	for i, page := range content.Pages {
		n := i + 1
		slidePart := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		overrides["/"+slidePart] = ctSlide
		order = append(order, "/"+slidePart)

		relID := fmt.Sprintf("rId%d", n+2)
		presRels = append(presRels, relationship{ID: relID, Type: relSlide, Target: fmt.Sprintf("slides/slide%d.xml", n)})
		fmt.Fprintf(&slideIDs, `<p:sldId id="%d" r:id="%s"/>`, 255+n, relID)

		pw.add(fmt.Sprintf("ppt/media/image%d.png", n), page.Image)
		pw.add(slidePart, slideXML(page))
		pw.add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), relsXML([]relationship{
			{ID: "rId1", Type: relSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
			{ID: "rId2", Type: relImage, Target: fmt.Sprintf("../media/image%d.png", n)},
		}))

		models.Report(progress, min(99, 86+int(math.Round(float64(n)/float64(total)*13))), fmt.Sprintf("Building slide %d of %d", n, total))
	}

	var pres strings.Builder
	pres.WriteString(xmlHeader)
	fmt.Fprintf(&pres, `<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsDrawing, nsOfficeRels, nsPresentationML)
	pres.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	if slideIDs.Len() > 0 {
		pres.WriteString(`<p:sldIdLst>` + slideIDs.String() + `</p:sldIdLst>`)
	}
	fmt.Fprintf(&pres, `<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="6858000" cy="9144000"/>`, emu(slideWidthIn), emu(slideHeightIn))
	pres.WriteString(`</p:presentation>`)

	pw.add("[Content_Types].xml", contentTypesXML(overrides, order))
	pw.add("_rels/.rels", relsXML([]relationship{{ID: "rId1", Type: relOfficeDocument, Target: "ppt/presentation.xml"}}))
	pw.add("ppt/presentation.xml", []byte(pres.String()))
	pw.add("ppt/_rels/presentation.xml.rels", relsXML(presRels))
	pw.add("ppt/slideMasters/slideMaster1.xml", slideMasterXML())
	pw.add("ppt/slideMasters/_rels/slideMaster1.xml.rels", relsXML([]relationship{
		{ID: "rId1", Type: relSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		{ID: "rId2", Type: relTheme, Target: "../theme/theme1.xml"},
	}))
	pw.add("ppt/slideLayouts/slideLayout1.xml", slideLayoutXML())
	pw.add("ppt/slideLayouts/_rels/slideLayout1.xml.rels", relsXML([]relationship{
		{ID: "rId1", Type: relSlideMaster, Target: "../slideMasters/slideMaster1.xml"},
	}))
	pw.add("ppt/theme/theme1.xml", []byte(themeXML))
	return pw.bytes()
}

// SlidePlacement returns where a page of the given pixel size lands on the
// slide, in inches.
func SlidePlacement(width, height int) models.RectF {
	return processor.FitContainF(float64(width), float64(height), slideWidthIn, slideHeightIn)
}

func slideXML(page Page) []byte {
	box := SlidePlacement(page.Width, page.Height)
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld>`, nsDrawing, nsOfficeRels, nsPresentationML)
	b.WriteString(whiteBackground)
	b.WriteString(`<p:spTree>` + emptyGroup)
	fmt.Fprintf(&b, `<p:pic><p:nvPicPr><p:cNvPr id="2" name="Page %d" descr="%s"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`,
		page.Number, escapeAttr(page.Text))
	b.WriteString(`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`)
	fmt.Fprintf(&b, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`,
		emu(box.X), emu(box.Y), emu(box.Width), emu(box.Height))
	b.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return []byte(b.String())
}

func slideMasterXML() []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:sldMaster xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld>`, nsDrawing, nsOfficeRels, nsPresentationML)
	b.WriteString(whiteBackground)
	b.WriteString(`<p:spTree>` + emptyGroup + `</p:spTree></p:cSld>`)
	b.WriteString(`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`)
	b.WriteString(`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>`)
	b.WriteString(`</p:sldMaster>`)
	return []byte(b.String())
}

func slideLayoutXML() []byte {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:sldLayout xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" type="blank" preserve="1">`, nsDrawing, nsOfficeRels, nsPresentationML)
	b.WriteString(`<p:cSld name="Blank"><p:spTree>` + emptyGroup + `</p:spTree></p:cSld>`)
	b.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`)
	return []byte(b.String())
}

// escapeAttr escapes s for use inside a double-quoted attribute and keeps it
// short enough for alt text.
func escapeAttr(s string) string {
	const limit = 1000
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit])
	}
	return strings.ReplaceAll(escape(s), `"`, "&quot;")
}

const themeXML = xmlHeader + `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office"><a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1><a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2><a:accent1><a:srgbClr val="4472C4"/></a:accent1>` +
	`<a:accent2><a:srgbClr val="ED7D31"/></a:accent2><a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6><a:hlink><a:srgbClr val="0563C1"/></a:hlink>` +
	`<a:folHlink><a:srgbClr val="954F72"/></a:folHlink></a:clrScheme>` +
	`<a:fontScheme name="Office"><a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont></a:fontScheme>` +
	`<a:fmtScheme name="Office"><a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst></a:fmtScheme>` +
	`</a:themeElements></a:theme>`
