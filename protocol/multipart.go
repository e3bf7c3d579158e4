package protocol

import (
	"io"
	"strings"

	"github.com/google/uuid"
)

// FormField is one text part of a multipart/form-data body
type FormField struct {
	Name  string
	Value string
}

// FormFile is the final, streamed part of a multipart/form-data body
type FormFile struct {
	Field       string
	FileName    string
	ContentType string
	R           io.Reader
	Size        int64
}

// Multipart is a multipart/form-data body made of text fields followed by
// one file streamed from storage. Its total length is known up front so it
// can be sent with a plain Content-Length.
type Multipart struct {
	Boundary string
	head     string
	tail     string
	file     FormFile
}

// NewMultipart lays out fields and file under a fresh random boundary
func NewMultipart(fields []FormField, file FormFile) *Multipart {
	return NewMultipartWithBoundary("----livi"+strings.ReplaceAll(uuid.NewString(), "-", ""), fields, file)
}

// NewMultipartWithBoundary is NewMultipart with a caller-chosen boundary
func NewMultipartWithBoundary(boundary string, fields []FormField, file FormFile) *Multipart {
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString("--" + boundary + "\r\n")
		sb.WriteString(`Content-Disposition: form-data; name="` + f.Name + "\"\r\n\r\n")
		sb.WriteString(f.Value + "\r\n")
	}
	sb.WriteString("--" + boundary + "\r\n")
	sb.WriteString(`Content-Disposition: form-data; name="` + file.Field + `"; filename="` + file.FileName + "\"\r\n")
	sb.WriteString("Content-Type: " + file.ContentType + "\r\n\r\n")

	return &Multipart{
		Boundary: boundary,
		head:     sb.String(),
		tail:     "\r\n--" + boundary + "--\r\n",
		file:     file,
	}
}

// ContentType returns the header value announcing the boundary
func (m *Multipart) ContentType() string {
	return "multipart/form-data; boundary=" + m.Boundary
}

// Len returns the exact byte count WriteTo will produce
func (m *Multipart) Len() int64 {
	return int64(len(m.head)) + m.file.Size + int64(len(m.tail))
}

// WriteTo writes the text parts, streams the file in blocks, then closes
// the body with the final boundary
func (m *Multipart) WriteTo(w io.Writer) (int64, error) {
	var total int64
	n, err := io.WriteString(w, m.head)
	total += int64(n)
	if err != nil {
		return total, err
	}

	copied, err := copyBlocks(w, m.file.R, m.file.Size)
	total += copied
	if err != nil {
		return total, err
	}

	n, err = io.WriteString(w, m.tail)
	total += int64(n)
	return total, err
}
