// Package translit maps Cyrillic letters to Latin letter sequences.
//
// The mapping is character-local: every rune is looked up on its own, so
// Transliterate(a+b) == Transliterate(a)+Transliterate(b) for any strings.
// Runes missing from the table (digits, Latin, punctuation, other scripts)
// are passed through unchanged. The hard and soft signs map to "" and are
// dropped.
package translit

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

var table = map[rune]string{
	'А': "A", 'а': "a", 'Б': "B", 'б': "b", 'В': "V", 'в': "v",
	'Г': "G", 'г': "g", 'Д': "D", 'д': "d", 'Е': "E", 'е': "e",
	'Ё': "E", 'ё': "e", 'Ж': "Zh", 'ж': "zh", 'З': "Z", 'з': "z",
	'И': "I", 'и': "i", 'Й': "Y", 'й': "y", 'К': "K", 'к': "k",
	'Л': "L", 'л': "l", 'М': "M", 'м': "m", 'Н': "N", 'н': "n",
	'О': "O", 'о': "o", 'П': "P", 'п': "p", 'Р': "R", 'р': "r",
	'С': "S", 'с': "s", 'Т': "T", 'т': "t", 'У': "U", 'у': "u",
	'Ф': "F", 'ф': "f", 'Х': "Kh", 'х': "kh", 'Ц': "Ts", 'ц': "ts",
	'Ч': "Ch", 'ч': "ch", 'Ш': "Sh", 'ш': "sh", 'Щ': "Shch", 'щ': "shch",
	'Ъ': "", 'ъ': "", 'Ы': "Y", 'ы': "y", 'Ь': "", 'ь': "",
	'Э': "E", 'э': "e", 'Ю': "Yu", 'ю': "yu", 'Я': "Ya", 'я': "ya",
}

// Lookup returns the Latin replacement for r and whether r is in the table.
func Lookup(r rune) (string, bool) {
	s, ok := table[r]
	return s, ok
}

// Len is the number of mapped runes.
func Len() int { return len(table) }

// Transliterate rewrites s rune by rune. Invalid UTF-8 bytes are kept as they are.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if rep, ok := table[r]; ok {
			b.WriteString(rep)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// Transformer is the table as a transform.Transformer so it can be chained
// with normalization forms.
type Transformer struct{ transform.NopResetter }

// Transform implements transform.Transformer. Invalid UTF-8 bytes are copied verbatim.
func (Transformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size == 1 && !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}

		out := src[nSrc : nSrc+size]
		if rep, ok := table[r]; ok {
			out = []byte(rep)
		}
		if nDst+len(out) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += copy(dst[nDst:], out)
		nSrc += size
	}
	return nDst, nSrc, nil
}
