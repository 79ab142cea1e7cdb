package journal

import (
	"strings"
	"time"

	"github.com/starford/daybook/internal/parser"
)

// Entry is one timestamped journal record.
type Entry struct {
	Time  time.Time `json:"time"`
	Text  string    `json:"text"`
	Title string    `json:"title"`
	Tags  []string  `json:"tags"`
}

func newEntry(ts time.Time, text string) Entry {
	res := parser.Parse(text)
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	return Entry{Time: ts, Text: text, Title: res.Title, Tags: tags}
}

// encodeLine renders an entry as "<RFC 3339>\t<escaped text>\n".
func encodeLine(ts time.Time, text string) []byte {
	var b strings.Builder
	b.Grow(len(text) + 32)
	b.WriteString(ts.Format(time.RFC3339))
	b.WriteByte('\t')
	b.WriteString(escape(text))
	b.WriteByte('\n')
	return []byte(b.String())
}

// decodeLine parses one journal line without its terminator. Lines that do
// not carry a valid timestamp come back verbatim with a zero Time.
func decodeLine(line string) Entry {
	ts, body, ok := strings.Cut(line, "\t")
	if !ok {
		return newEntry(time.Time{}, line)
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return newEntry(time.Time{}, line)
	}
	return newEntry(t, unescape(body))
}

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
