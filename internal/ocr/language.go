package ocr

import "strings"

// languageCodes maps BCP 47 primary language subtags to the 3-letter codes
// the OCR service expects.
var languageCodes = map[string]string{
	"en": "eng",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"nl": "nld",
	"pl": "pol",
	"ru": "rus",
	"tr": "tur",
	"zh": "chi_sim",
	"ja": "jpn",
	"ko": "kor",
	"ar": "ara",
}

// MapLanguage converts a document language tag (e.g. "en", "de-AT") to the
// OCR service's 3-letter code, defaulting to English when the tag is missing
// or unrecognized.
func MapLanguage(tag string) string {
	primary, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
	if code, ok := languageCodes[primary]; ok {
		return code
	}
	return "eng"
}
