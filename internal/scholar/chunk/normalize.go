package chunk

import (
	"regexp"
	"strings"
)

// PDF extraction leaves predictable artifacts behind. Each pattern below
// targets one of them; order matters because later passes assume earlier
// ones already ran.
var (
	reControlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
	reHyphenBreak  = regexp.MustCompile(`(\p{L})-\n[ \t]*(\p{L})`)
	reMultiBlank   = regexp.MustCompile(`\n\s*\n\s*\n+`)
	reMultiSpace   = regexp.MustCompile(` +`)
	rePageNumber   = regexp.MustCompile(`(?m)^[ \t]*Page \d+[ \t]*$`)
	reBareNumber   = regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*$`)
	reCapsHeader   = regexp.MustCompile(`(?m)^[ \t]*[A-Z][A-Z ]{2,}[ \t]*$`)
	reSectionWord  = regexp.MustCompile(`(?mi)^[ \t]*(Abstract|Introduction|Conclusion|References|Bibliography)[ \t]*$`)
	reLetterLine   = regexp.MustCompile(`(?m)^[ \t]*[a-zA-Z]([ \t]+[a-zA-Z]){0,2}[ \t]*$`)
	reArxivURL     = regexp.MustCompile(`https?://arxiv\.org/abs/\d+\.\d+`)
	reArxivBareID  = regexp.MustCompile(`\d{4}\.\d{4,5}`)
	reBrokenMath   = regexp.MustCompile(`([A-Za-z])[ \t]*\n[ \t]*([+\-*/=])`)
	reManyPunct    = regexp.MustCompile(`[.!?]{3,}`)
	reSingleLetter = regexp.MustCompile(`\b[a-zA-Z]\b`)

	asciiPunct = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		"–", "-", "—", "-",
	)
)

// Normalize cleans raw extracted text into the canonical form both
// chunkers consume. It is deterministic and total: any input yields a
// (possibly empty) result, and empty input yields empty output.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	text := reControlChars.ReplaceAllString(raw, "")
	text = reHyphenBreak.ReplaceAllString(text, "$1$2")

	text = reMultiBlank.ReplaceAllString(text, "\n\n")
	text = reMultiSpace.ReplaceAllString(text, " ")

	text = rePageNumber.ReplaceAllString(text, "")
	text = reBareNumber.ReplaceAllString(text, "")
	text = reCapsHeader.ReplaceAllString(text, "")
	text = reSectionWord.ReplaceAllString(text, "")
	text = reLetterLine.ReplaceAllString(text, "")

	text = reArxivURL.ReplaceAllString(text, "")
	text = reArxivBareID.ReplaceAllString(text, "")

	text = reBrokenMath.ReplaceAllString(text, "$1$2")
	text = reManyPunct.ReplaceAllString(text, "...")
	text = asciiPunct.Replace(text)

	text = dropFragmentedLines(text)

	text = reMultiBlank.ReplaceAllString(text, "\n\n")
	text = reMultiSpace.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// dropFragmentedLines removes lines dominated by isolated single letters,
// a signature of broken multi-column extraction.
func dropFragmentedLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			kept = append(kept, line)
			continue
		}
		isolated := len(reSingleLetter.FindAllString(line, -1))
		if float64(isolated) <= float64(len(words))*0.4 || isolated <= 2 {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
