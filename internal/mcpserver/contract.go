package mcpserver

// JournalFormat describes how entries are stored so that LLM consumers
// write text that reads back the way they expect.
const JournalFormat = `# daybook Journal Format

The journal is a single UTF-8 text file (` + "`journal.txt`" + ` in the data directory).
Entries are only ever appended; there is no edit or delete.

## Line layout

Each entry is exactly one line:

` + "```" + `
<RFC 3339 timestamp><TAB><escaped text>
` + "```" + `

Example:

` + "```" + `
2026-10-18T09:30:00Z	Ran 5k before work #health\nFelt slow but finished.
` + "```" + `

## Escaping

| Character       | Stored as |
|-----------------|-----------|
| backslash       | ` + "`\\\\`" + ` |
| newline         | ` + "`\\n`" + ` |
| carriage return | ` + "`\\r`" + ` |
| tab             | ` + "`\\t`" + ` |

Tools take and return plain text; escaping is applied on write and undone on read.

## Rules

1. **Text is required.** Empty or whitespace-only entries are rejected.
2. **Timestamps are assigned by the server** at second precision. Callers cannot backdate.
3. **Tags** are written inline as ` + "`#tag`" + `: a letter followed by letters, digits,
   ` + "`_`" + `, ` + "`-`" + ` or ` + "`/`" + `. They are case-insensitive and reported lowercase.
4. **Title** is the first non-blank line, shortened to 80 characters.
5. **Hand-edited lines** that do not match the layout are still listed, with no
   timestamp and the raw line as text.
`
