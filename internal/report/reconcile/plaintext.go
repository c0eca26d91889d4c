package reconcile

import "context"

// PlainTextExtractor treats the document bytes as already-extracted text.
// The service can return its confirmation as plain text alongside the PDF
// rendering; for the PDF case a converting extractor is plugged in instead.
type PlainTextExtractor struct{}

func (PlainTextExtractor) ExtractText(_ context.Context, document []byte) (string, error) {
	return string(document), nil
}
