package attachment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	pdfLabel        = "\n\nPDF contents:\n"
	ignoredNoteFmt  = "\n\nFile %s was attached but not processed (only PDF files are supported)."
	failureNotePref = "\n\nError processing file: "
)

// Annotate appends the attachment to content. A PDF contributes the text of
// all its pages in order, after a fixed label. A non-PDF contributes only a
// notice that it was ignored, and extraction is never attempted. When
// extraction fails the error is written into the content instead.
//
// The returned error is the recovered *AttachmentError (nil on success) and is
// meant for logging only; the content is always usable.
func Annotate(ctx context.Context, extractor Extractor, content string, att *Attachment) (string, error) {
	if att == nil {
		return content, nil
	}

	if !att.IsPDF() {
		return content + fmt.Sprintf(ignoredNoteFmt, att.Name), &AttachmentError{Name: att.Name, Err: ErrNotPDF}
	}

	text, err := extractText(ctx, extractor, att)
	if err != nil {
		return content + failureNotePref + err.Error(), &AttachmentError{Name: att.Name, Err: err}
	}

	return content + pdfLabel + text, nil
}

func extractText(ctx context.Context, extractor Extractor, att *Attachment) (text string, err error) {
	if extractor == nil {
		return "", errors.New("no PDF extractor configured")
	}

	// extraction libraries may panic on hostile input; keep the turn alive
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract %s: %v", att.Name, r)
		}
	}()

	pages, err := extractor.ExtractPages(ctx, att.Data)
	if err != nil {
		return "", err
	}

	return strings.Join(pages, ""), nil
}
