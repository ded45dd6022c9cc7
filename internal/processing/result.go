package processing

import (
	"strconv"
	"strings"

	"github.com/private-doc-vault/docvault/pkg/formatting"
)

// Result is a completed OCR outcome delivered by the external service.
type Result struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"`
	Language   string         `json:"language"`
	Metadata   ResultMetadata `json:"metadata"`
	Category   ResultCategory `json:"category"`
}

// ResultMetadata carries the structured fields the OCR service extracted.
type ResultMetadata struct {
	Dates          []string  `json:"dates,omitempty"`
	Amounts        []float64 `json:"amounts,omitempty"`
	InvoiceNumbers []string  `json:"invoice_numbers,omitempty"`
	Names          []string  `json:"names,omitempty"`
	Emails         []string  `json:"emails,omitempty"`
	TaxIDs         []string  `json:"tax_ids,omitempty"`
}

// ResultCategory names the category the OCR service assigned.
type ResultCategory struct {
	PrimaryCategory string `json:"primary_category"`
}

// normalizeConfidence maps a confidence score into the 0-1 range. Services
// disagree on scale: values greater than 1 are percentages and are divided
// by 100.
func normalizeConfidence(confidence float64) float64 {
	if confidence > 1 {
		confidence = confidence / 100
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// flatten converts the structured metadata lists into flat key/value entries.
// Values are comma-joined; no nested wrapper key is introduced.
func (m ResultMetadata) flatten() map[string]string {
	flat := make(map[string]string)

	put := func(key string, values []string) {
		if len(values) > 0 {
			flat[key] = strings.Join(values, ", ")
		}
	}

	put("dates", m.Dates)
	put("invoice_numbers", m.InvoiceNumbers)
	put("names", m.Names)
	put("emails", m.Emails)
	put("tax_ids", m.TaxIDs)

	if len(m.Amounts) > 0 {
		amounts := make([]string, len(m.Amounts))
		for i, a := range m.Amounts {
			amounts[i] = formatAmount(a)
		}
		flat["amounts"] = strings.Join(amounts, ", ")
	}

	return flat
}

// largestAmount returns the largest value in amounts formatted as a string,
// or nil when the list is empty.
func largestAmount(amounts []float64) *string {
	if len(amounts) == 0 {
		return nil
	}

	largest := amounts[0]
	for _, a := range amounts[1:] {
		if a > largest {
			largest = a
		}
	}

	formatted := formatAmount(largest)
	return &formatted
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

// buildSearchableContent concatenates the OCR text, the original filename,
// and every extracted identifier list into one flattened blob for indexing,
// collapsing repeated whitespace and trimming the result.
func buildSearchableContent(text, filename string, meta ResultMetadata) string {
	parts := []string{
		text,
		filename,
		strings.Join(meta.InvoiceNumbers, " "),
		strings.Join(meta.Names, " "),
		strings.Join(meta.Emails, " "),
		strings.Join(meta.TaxIDs, " "),
	}

	return formatting.CollapseWhitespace(strings.Join(parts, " "))
}
