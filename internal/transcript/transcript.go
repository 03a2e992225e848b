// Package transcript renders a closed ticket's message history into
// durable artifacts: a structured text form for archival and search,
// and a self-contained HTML document for human review. Rendering is a
// pure function of its input.
package transcript

import (
	"bufio"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/guildtools/ticketbot/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

// Header carries ticket context included at the top of both forms.
type Header struct {
	TicketID    string
	ChannelName string
	GuildName   string
	GeneratedAt time.Time
}

// Artifact bundles both rendered forms of a transcript.
type Artifact struct {
	Text         string
	HTML         string
	FileName     string
	MessageCount int
}

// Generator renders transcripts. It holds no state.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// Render produces both artifact forms in a single pass. An empty
// message sequence yields a minimal valid artifact.
func (g *Generator) Render(header Header, messages []domain.Message) Artifact {
	return Artifact{
		Text:         renderText(header, messages),
		HTML:         renderHTML(header, messages),
		FileName:     fmt.Sprintf("transcript-%s-%s.txt", header.TicketID, header.GeneratedAt.Format("20060102-150405")),
		MessageCount: len(messages),
	}
}

func renderText(header Header, messages []domain.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== TICKET TRANSCRIPT: %s ===\n", header.TicketID)
	fmt.Fprintf(&b, "Channel: #%s\n", header.ChannelName)
	fmt.Fprintf(&b, "Guild: %s\n", header.GuildName)
	fmt.Fprintf(&b, "Generated: %s\n", header.GeneratedAt.UTC().Format(timeLayout))
	b.WriteString(strings.Repeat("=", 50) + "\n")

	if len(messages) == 0 {
		b.WriteString("(no messages)\n")
		return b.String()
	}

	for _, msg := range messages {
		content := msg.Content
		if content == "" {
			content = "[no text content]"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Timestamp.UTC().Format(timeLayout), escapeAuthor(msg.AuthorName), escapeContent(content))
		for _, att := range msg.Attachments {
			fmt.Fprintf(&b, "    attachment: %s\n", att)
		}
	}
	return b.String()
}

// escapeContent makes message content safe for the one-line-per-message
// text form. Backslashes are doubled before newlines are encoded so a
// literal backslash-n in the source survives the round trip.
func escapeContent(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

// escapeAuthor additionally encodes colons so an author name containing
// ": " cannot shift the author/content boundary.
func escapeAuthor(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ":", `\:`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func unescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
			case ':':
				b.WriteByte(':')
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(s[i])
				b.WriteByte(s[i+1])
			}
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// splitAuthor splits "author: content" at the first ": " whose colon is
// not escaped. A colon preceded by an odd run of backslashes is escaped.
func splitAuthor(rest string) (author, content string, ok bool) {
	for i := 0; i+1 < len(rest); i++ {
		if rest[i] != ':' || rest[i+1] != ' ' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && rest[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return rest[:i], rest[i+2:], true
		}
	}
	return "", "", false
}

// ParseText recovers the ordered (author, timestamp, content) sequence
// from the structured text form. Header and attachment lines are
// skipped; a malformed message line yields an error.
func ParseText(text string) ([]domain.Message, error) {
	var messages []domain.Message
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "[") {
			continue
		}
		end := strings.Index(line, "] ")
		if end < 0 {
			return nil, fmt.Errorf("malformed transcript line: %q", line)
		}
		ts, err := time.Parse(timeLayout, line[1:end])
		if err != nil {
			return nil, fmt.Errorf("malformed transcript timestamp: %w", err)
		}
		rest := line[end+2:]
		author, content, ok := splitAuthor(rest)
		if !ok {
			return nil, fmt.Errorf("malformed transcript line: %q", line)
		}
		messages = append(messages, domain.Message{
			AuthorName: unescape(author),
			Timestamp:  ts.UTC(),
			Content:    unescape(content),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

var htmlTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Transcript - {{.Header.TicketID}}</title>
<style>
body { background-color: #36393f; color: #dcddde; font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; margin: 0; padding: 20px; }
.header { background-color: #2f3136; padding: 20px; border-radius: 8px; margin-bottom: 20px; }
.message { margin-bottom: 16px; padding: 8px; border-radius: 4px; }
.message:hover { background-color: #32353b; }
.author { font-weight: 600; color: #ffffff; }
.timestamp { color: #72767d; font-size: 12px; margin-left: 8px; }
.content { margin-top: 4px; word-wrap: break-word; white-space: pre-wrap; }
.attachment { color: #00b0f4; margin-top: 4px; }
.empty { color: #72767d; font-style: italic; }
</style>
</head>
<body>
<div class="header">
<h1>Transcript: {{.Header.TicketID}}</h1>
<p>Channel: #{{.Header.ChannelName}}</p>
<p>Guild: {{.Header.GuildName}}</p>
<p>Generated: {{.GeneratedAt}}</p>
</div>
{{if not .Messages}}<div class="message empty">No messages.</div>{{end}}
{{range .Messages}}<div class="message">
<span class="author">{{.AuthorName}}</span>
<span class="timestamp">{{.Time}}</span>
<div class="content">{{.Content}}</div>
{{range .Attachments}}<div class="attachment">attachment: {{.}}</div>
{{end}}</div>
{{end}}</body>
</html>
`))

type htmlMessage struct {
	AuthorName  string
	Time        string
	Content     string
	Attachments []string
}

type htmlData struct {
	Header      Header
	GeneratedAt string
	Messages    []htmlMessage
}

func renderHTML(header Header, messages []domain.Message) string {
	data := htmlData{
		Header:      header,
		GeneratedAt: header.GeneratedAt.UTC().Format(timeLayout),
	}
	for _, msg := range messages {
		content := msg.Content
		if content == "" {
			content = "[no text content]"
		}
		data.Messages = append(data.Messages, htmlMessage{
			AuthorName:  msg.AuthorName,
			Time:        msg.Timestamp.UTC().Format(timeLayout),
			Content:     content,
			Attachments: msg.Attachments,
		})
	}

	var b strings.Builder
	if err := htmlTmpl.Execute(&b, data); err != nil {
		// Template executes over plain values; the only failure mode is
		// the writer, and strings.Builder does not fail.
		return ""
	}
	return b.String()
}
