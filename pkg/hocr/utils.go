// Package hocr renders recognition results as hOCR documents.
package hocr

import (
	"fmt"
	"html"
	"image"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// Page describes the image the results were recognized on.
type Page struct {
	Width    int
	Height   int
	Image    string
	Language string
}

// ConvertToHOCR renders one ocr_line per result. Results without
// coordinates have no bbox and the no-text sentinel produces an empty page.
func ConvertToHOCR(results []recognition.Result, page Page) string {
	var lines []string
	for i, r := range results {
		if r.NoTextInRegion {
			continue
		}
		var text string
		if r.Text != nil {
			text = *r.Text
		}
		var props []string
		if rect, ok := resultRect(r); ok {
			props = append(props, bbox(rect))
		}
		if r.Confidence != nil {
			props = append(props, fmt.Sprintf("x_wconf %d", int(math.Round(*r.Confidence*100))))
		}
		line := fmt.Sprintf(`<span class='ocr_line' id='line_%d' title='%s'>%s</span>`,
			i+1, strings.Join(props, "; "), html.EscapeString(text))
		lines = append(lines, line)
	}
	return WrapInHOCRDocument(strings.Join(lines, "\n"), page)
}

func resultRect(r recognition.Result) (image.Rectangle, bool) {
	switch {
	case r.BoundingBox != nil:
		return r.BoundingBox.Rect(), true
	case r.Corners != nil:
		c := r.Corners
		return image.Rect(int(math.Round(c.X1)), int(math.Round(c.Y2)), int(math.Round(c.X2)), int(math.Round(c.Y1))), true
	}
	return image.Rectangle{}, false
}

func bbox(r image.Rectangle) string {
	return fmt.Sprintf("bbox %d %d %d %d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// WrapInHOCRDocument wraps content in a complete hOCR HTML document
func WrapInHOCRDocument(content string, page Page) string {
	lang := page.Language
	if lang == "" {
		lang = "en"
	}
	title := []string{bbox(image.Rect(0, 0, page.Width, page.Height))}
	if page.Image != "" {
		title = append([]string{fmt.Sprintf("image %q", page.Image)}, title...)
	}
	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="%[1]s" lang="%[1]s">
<head>
<title></title>
<meta http-equiv="Content-Type" content="text/html;charset=utf-8" />
<meta name='ocr-system' content='textrecog' />
<meta name='ocr-capabilities' content='ocr_page ocr_line' />
</head>
<body>
<div class='ocr_page' id='page_1' title='%[2]s'>
%[3]s
</div>
</body>
</html>`, html.EscapeString(lang), html.EscapeString(strings.Join(title, "; ")), content)
}
