// Package extract finds catalog items and their quantities in free-form customer text.
package extract

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"orderagent/catalog"
	"orderagent/order"
)

// DefaultWindow is how many bytes before a mention are searched for its quantity.
const DefaultWindow = 20

var (
	trailingDigits  = regexp.MustCompile(`(\d+)\s*$`)
	trailingWord    = regexp.MustCompile(`\b(one|two|three|four|five|six|seven|eight|nine|ten)\s*$`)
	trailingArticle = regexp.MustCompile(`\ban?\s*$`)
)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// Extractor matches catalog aliases in text. It is immutable and safe for concurrent use.
type Extractor struct {
	cat     *catalog.Catalog
	aliases []catalog.Alias
	window  int
}

type Option func(*Extractor)

// WithWindow sets the quantity look-behind window in bytes. Values below 1 are ignored.
func WithWindow(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.window = n
		}
	}
}

func New(cat *catalog.Catalog, opts ...Option) *Extractor {
	e := &Extractor{
		cat:     cat,
		aliases: cat.Aliases(),
		window:  DefaultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type mention struct {
	canonical string
	start     int
	qty       int
}

// Extract returns one priced line per catalog item mentioned in text, in order of first
// mention. Quantities of repeated mentions are summed. Unrecognized text is ignored.
func (e *Extractor) Extract(text string) []order.Line {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return []order.Line{}
	}

	var claimed spans
	var mentions []mention

	for _, a := range e.aliases {
		for _, m := range findAll(lower, a.Surface) {
			if !claimed.claim(m.start, m.end) {
				continue
			}
			mentions = append(mentions, mention{
				canonical: a.Canonical,
				start:     m.start,
				qty:       e.quantityBefore(lower, m.start),
			})
		}
	}

	sortMentions(mentions)

	totals := make(map[string]int)
	var seen []string
	for _, m := range mentions {
		if _, ok := totals[m.canonical]; !ok {
			seen = append(seen, m.canonical)
		}
		totals[m.canonical] = order.AddQuantity(totals[m.canonical], m.qty)
	}

	lines := make([]order.Line, 0, len(seen))
	for _, name := range seen {
		qty := totals[name]
		if qty <= 0 {
			continue
		}
		line, err := order.NewLine(e.cat, name, qty)
		if err != nil {
			slog.Error("EXTRACT: Failed to price item", "item", name, "error", err)
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// quantityBefore reads the quantity signal in the window that ends at pos.
func (e *Extractor) quantityBefore(text string, pos int) int {
	from := pos - e.window
	if from < 0 {
		from = 0
	}
	for from < pos && !utf8.RuneStart(text[from]) {
		from++
	}
	window := text[from:pos]

	if m := trailingDigits.FindStringSubmatch(window); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= order.MaxQuantity {
			return n
		}
	}
	if m := trailingWord.FindStringSubmatch(window); m != nil {
		return numberWords[m[1]]
	}
	if trailingArticle.MatchString(window) {
		return 1
	}
	return 1
}

type match struct {
	start, end int
}

// findAll returns every occurrence of alias in text that sits on word boundaries, allowing one
// trailing "s" for plurals. The span includes the "s".
func findAll(text, alias string) []match {
	var out []match
	for offset := 0; offset <= len(text)-len(alias); {
		i := strings.Index(text[offset:], alias)
		if i < 0 {
			break
		}
		start := offset + i
		end := start + len(alias)

		if boundaryBefore(text, start) {
			if boundaryAfter(text, end) {
				out = append(out, match{start: start, end: end})
			} else if end < len(text) && text[end] == 's' && boundaryAfter(text, end+1) {
				out = append(out, match{start: start, end: end + 1})
			}
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}
