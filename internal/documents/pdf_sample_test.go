package documents

import (
	"bytes"
	"fmt"
	"strings"
)

// SamplePDF builds a structurally valid PDF with the given page count. When
// size is positive the file is padded with a comment to exactly size bytes.
func SamplePDF(pages, size int) []byte {
	pad := 0
	for i := 0; i < 4; i++ {
		out := buildPDF(pages, pad)
		if size <= 0 || len(out) == size {
			return out
		}
		pad += size - len(out)
		if pad < 0 {
			pad = 0
		}
	}
	return buildPDF(pages, pad)
}

func buildPDF(pages, pad int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	if pad > 2 {
		buf.WriteString("%")
		buf.WriteString(strings.Repeat("x", pad-2))
		buf.WriteString("\n")
	}

	var offsets []int
	writeObj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	writeObj("<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		writeObj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
