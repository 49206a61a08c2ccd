package outline

import (
	"bytes"
	"fmt"
	"strings"
)

// assemblePDF lays out objs as objects 1..n with a valid xref table.
// Object 1 must be the catalog. A body starting with "stream:" becomes a
// stream object holding the remaining text.
func assemblePDF(objs []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		if data, ok := strings.CutPrefix(body, "stream:"); ok {
			fmt.Fprintf(&buf, "<< /Length %d >>\nstream\n%s\nendstream\n", len(data), data)
		} else {
			buf.WriteString(body)
			buf.WriteString("\n")
		}
		buf.WriteString("endobj\n")
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// pagedPDF builds a document with one page per content stream. Catalog is
// object 1, the page tree 2, the font 3, pages 4..3+n and their contents
// after that. extra objects follow the contents and catalogExtra is spliced
// into the catalog dictionary.
func pagedPDF(contents []string, catalogExtra string, extra ...string) []byte {
	n := len(contents)
	kids := make([]string, n)
	for i := range contents {
		kids[i] = fmt.Sprintf("%d 0 R", 4+i)
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R " + catalogExtra + " >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	for i := range contents {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			4+n+i))
	}
	for _, c := range contents {
		objs = append(objs, "stream:"+c)
	}
	objs = append(objs, extra...)
	return assemblePDF(objs)
}

func textLineOp(size int, y int, text string) string {
	return fmt.Sprintf("BT /F1 %d Tf 72 %d Td (%s) Tj ET\n", size, y, text)
}

const bodyLine = "This sentence is ordinary body text and it is long enough to dominate"
