// Package attachment turns files attached to a chat message into prompt text.
// Only PDF documents are read; anything else is noted and ignored.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotPDF marks an attachment that was ignored because it is not a PDF.
var ErrNotPDF = errors.New("only PDF files are supported")

// Attachment is a file uploaded alongside a user message.
type Attachment struct {
	// Name is the original file name; its extension decides how the file is handled.
	Name string

	// Data is the raw file content.
	Data []byte
}

// Load reads an attachment from disk.
func Load(path string) (*Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	return &Attachment{Name: filepath.Base(path), Data: data}, nil
}

// IsPDF reports whether the attachment should be run through PDF extraction.
func (a *Attachment) IsPDF() bool {
	return strings.HasSuffix(strings.ToLower(a.Name), ".pdf")
}

// AttachmentError reports an attachment that could not be turned into text.
// It is always recovered: the failure is written into the message instead.
type AttachmentError struct {
	Name string
	Err  error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %s: %v", e.Name, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// Extractor pulls plain text out of a document, one string per page.
type Extractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}
