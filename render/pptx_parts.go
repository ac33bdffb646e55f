package render

import (
	"bytes"
	"encoding/xml"
	"text/template"
)

// PresentationML parts for a single-master, single-layout deck. Only the
// parts PowerPoint, Keynote and LibreOffice require are written.

const (
	nsA = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	nsR = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
	nsP = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

	relBase        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	relSlide       = relBase + "slide"
	relSlideMaster = relBase + "slideMaster"
	relSlideLayout = relBase + "slideLayout"
	relTheme       = relBase + "theme"
	relImage       = relBase + "image"
	relPresProps   = relBase + "presProps"
	relViewProps   = relBase + "viewProps"
	relTableStyles = relBase + "tableStyles"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	emuPerInch = 914400
)

type relationship struct {
	ID     string
	Type   string
	Target string
}

var funcs = template.FuncMap{
	"xml": func(s string) (string, error) {
		var buf bytes.Buffer
		err := xml.EscapeText(&buf, []byte(s))
		return buf.String(), err
	},
	"add": func(a, b int) int { return a + b },
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(xmlHeader + text))
}

var relsTemplate = mustTemplate("rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
{{- range .}}<Relationship Id="{{.ID}}" Type="{{.Type}}" Target="{{.Target}}"/>{{end -}}
</Relationships>`)

var contentTypesTemplate = mustTemplate("contentTypes", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Default Extension="jpeg" ContentType="image/jpeg"/>
<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>
<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>
<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
<Override PartName="/ppt/presProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"/>
<Override PartName="/ppt/viewProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.viewProps+xml"/>
<Override PartName="/ppt/tableStyles.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.tableStyles+xml"/>
{{- range .}}
<Override PartName="/ppt/slides/slide{{.}}.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
{{- end}}
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>
</Types>`)

var presentationTemplate = mustTemplate("presentation", `<p:presentation `+nsA+` `+nsR+` `+nsP+` saveSubsetFonts="1">
<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>
<p:sldIdLst>{{range $i, $n := .Slides}}<p:sldId id="{{add 256 $i}}" r:id="rId{{add 2 $i}}"/>{{end}}</p:sldIdLst>
<p:sldSz cx="{{.Width}}" cy="{{.Height}}"/>
<p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>`)

var coreTemplate = mustTemplate("core", `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>{{xml .Title}}</dc:title>
<dc:creator>Studiooh</dc:creator>
<dcterms:created xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:created>
<dcterms:modified xsi:type="dcterms:W3CDTF">{{.Created}}</dcterms:modified>
</cp:coreProperties>`)

var appTemplate = mustTemplate("app", `<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">
<Application>Studiooh</Application>
<PresentationFormat>On-screen Show (16:9)</PresentationFormat>
<Slides>{{.}}</Slides>
</Properties>`)

const groupShape = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

var slideTemplate = mustTemplate("slide", `<p:sld `+nsA+` `+nsR+` `+nsP+`>
<p:cSld><p:bg><p:bgPr><a:solidFill><a:srgbClr val="{{.Background}}"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>
<p:spTree>`+groupShape+`
{{- range .Shapes}}
{{- if .Text}}
<p:sp><p:nvSpPr><p:cNvPr id="{{.ID}}" name="TextBox {{.ID}}"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.W}}" cy="{{.H}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>
<p:txBody><a:bodyPr wrap="square" lIns="91440" tIns="45720" rIns="91440" bIns="45720" rtlCol="0"><a:spAutoFit/></a:bodyPr><a:lstStyle/>
{{- $t := .Text}}{{range $t.Lines}}<a:p><a:r><a:rPr lang="en-US" sz="{{$t.Size}}"{{if $t.Bold}} b="1"{{end}} spc="{{$t.Spacing}}" dirty="0"><a:solidFill><a:srgbClr val="{{$t.Color}}"/></a:solidFill><a:latin typeface="{{$t.Font}}"/></a:rPr><a:t>{{xml .}}</a:t></a:r></a:p>{{end}}
</p:txBody></p:sp>
{{- else}}
<p:pic><p:nvPicPr><p:cNvPr id="{{.ID}}" name="Picture {{.ID}}"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>
<p:blipFill><a:blip r:embed="{{.RelID}}"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>
<p:spPr><a:xfrm><a:off x="{{.X}}" y="{{.Y}}"/><a:ext cx="{{.W}}" cy="{{.H}}"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>
{{- end}}
{{- end}}
</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sld>`)

// static parts

const slideMasterXML = xmlHeader + `<p:sldMaster ` + nsA + ` ` + nsR + ` ` + nsP + `>
<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` + groupShape + `</p:spTree></p:cSld>
<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>
<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>
<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles>
</p:sldMaster>`

const slideLayoutXML = xmlHeader + `<p:sldLayout ` + nsA + ` ` + nsR + ` ` + nsP + ` type="blank" preserve="1">
<p:cSld name="Blank"><p:spTree>` + groupShape + `</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sldLayout>`

const presPropsXML = xmlHeader + `<p:presentationPr ` + nsA + ` ` + nsR + ` ` + nsP + `/>`

const viewPropsXML = xmlHeader + `<p:viewPr ` + nsA + ` ` + nsR + ` ` + nsP + `><p:gridSpacing cx="76200" cy="76200"/></p:viewPr>`

const tableStylesXML = xmlHeader + `<a:tblStyleLst ` + nsA + ` def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>`

const themeXML = xmlHeader + `<a:theme ` + nsA + ` name="Studiooh">
<a:themeElements>
<a:clrScheme name="Studiooh">
<a:dk1><a:srgbClr val="16161D"/></a:dk1><a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>
<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>
<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>
<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>
<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>
<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="Studiooh">
<a:majorFont><a:latin typeface="Inter"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
<a:minorFont><a:latin typeface="Inter"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
</a:fontScheme>
<a:fmtScheme name="Studiooh">
<a:fillStyleLst>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
</a:fillStyleLst>
<a:lnStyleLst>
<a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>
<a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>
<a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>
</a:lnStyleLst>
<a:effectStyleLst>
<a:effectStyle><a:effectLst/></a:effectStyle>
<a:effectStyle><a:effectLst/></a:effectStyle>
<a:effectStyle><a:effectLst/></a:effectStyle>
</a:effectStyleLst>
<a:bgFillStyleLst>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
</a:bgFillStyleLst>
</a:fmtScheme>
</a:themeElements>
</a:theme>`

func execute(t *template.Template, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
