package shape

import (
	"unicode"

	"github.com/go-text/typesetting/language"
)

// TextClassifier classifies spans as simple or complex. A rune is simple
// when it belongs to a script that shapes 1:1, carries no combining marks,
// is not a joiner or bidi control, and the face has a nominal glyph for it.
// Everything else (Arabic, Indic scripts, emoji sequences, combining marks,
// unmapped runes) is complex and goes through the full shaping engine.
//
// TextClassifier is stateless and safe for concurrent use.
type TextClassifier struct{}

// NewTextClassifier returns the default complexity classifier.
func NewTextClassifier() *TextClassifier { return &TextClassifier{} }

// Classify implements Classifier. It consumes the maximal leading run of
// uniform complexity and, for simple runs, fills glyphs with the nominal
// glyph of each rune.
func (c *TextClassifier) Classify(text []rune, face *Face, glyphs []GlyphID) (bool, int, error) {
	if len(text) == 0 {
		return true, 0, nil
	}
	if len(glyphs) < len(text) {
		return false, 0, ErrInsufficientBuffer
	}

	first, gid := c.runeIsSimple(text[0], face)
	if first {
		glyphs[0] = gid
	}
	n := 1
	for ; n < len(text); n++ {
		simple, gid := c.runeIsSimple(text[n], face)
		if simple != first {
			break
		}
		if simple {
			glyphs[n] = gid
		}
	}
	return first, n, nil
}

// runeIsSimple reports whether r can map 1:1 to a glyph of face.
func (c *TextClassifier) runeIsSimple(r rune, face *Face) (bool, GlyphID) {
	if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Me, r) {
		return false, 0
	}
	// Joiners and variation selectors glue neighbors into clusters.
	if r == 0x200C || r == 0x200D || (r >= 0xFE00 && r <= 0xFE0F) {
		return false, 0
	}
	if !scriptIsSimple(language.LookupScript(r)) {
		return false, 0
	}
	gid, ok := face.NominalGlyph(r)
	if !ok {
		return false, 0
	}
	return true, gid
}

// scriptIsSimple lists the scripts whose text never requires contextual
// shaping. Common and Inherited runes ride along with their neighbors and
// count as simple on their own.
func scriptIsSimple(s language.Script) bool {
	switch s {
	case language.Latin, language.Greek, language.Cyrillic,
		language.Armenian, language.Georgian,
		language.Hiragana, language.Katakana, language.Han,
		language.Hangul, language.Bopomofo,
		language.Common, language.Inherited, language.Unknown:
		return true
	default:
		return false
	}
}

// DetectScript returns the script of the first rune that has a concrete
// script, falling back to Latin.
func DetectScript(text []rune) language.Script {
	for _, r := range text {
		s := language.LookupScript(r)
		if s != language.Common && s != language.Inherited && s != language.Unknown {
			return s
		}
	}
	return language.Latin
}
