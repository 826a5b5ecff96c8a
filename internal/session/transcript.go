package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Message is one conversational turn from a session transcript.
type Message struct {
	Index     int       `json:"index"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ToolUse   bool      `json:"tool_use,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// transcriptLine is the tolerant shape of one JSONL record. Transcripts
// vary: role and content may sit at the top level or under "message",
// and content is either a string or a list of typed blocks.
type transcriptLine struct {
	Type      string          `json:"type"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
	Message   *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// ParseSession reads a JSONL transcript into messages. Lines that are
// not user or assistant turns (summaries, metadata) are skipped, as
// are unparseable lines.
func ParseSession(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var messages []Message
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec transcriptLine
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}

		role := rec.Role
		content := rec.Content
		if rec.Message != nil {
			if rec.Message.Role != "" {
				role = rec.Message.Role
			}
			if len(rec.Message.Content) > 0 {
				content = rec.Message.Content
			}
		}
		if role == "" {
			role = normalizeRole(rec.Type)
		} else {
			role = normalizeRole(role)
		}
		if role != "user" && role != "assistant" {
			continue
		}

		text, toolUse := flattenContent(content)
		if text == "" && !toolUse {
			continue
		}

		msg := Message{
			Index:   len(messages),
			Role:    role,
			Content: text,
			ToolUse: toolUse,
		}
		if rec.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339, rec.Timestamp); err == nil {
				msg.Timestamp = ts.UTC()
			}
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session %s: %w", path, err)
	}
	return messages, nil
}

func normalizeRole(s string) string {
	switch strings.ToLower(s) {
	case "user", "human":
		return "user"
	case "assistant":
		return "assistant"
	default:
		return s
	}
}

// flattenContent joins text blocks and reports whether any tool calls
// appear. Tool invocations matter downstream: they are hard evidence
// that claimed work actually ran.
func flattenContent(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), false
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", false
	}

	var parts []string
	toolUse := false
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if t := strings.TrimSpace(b.Text); t != "" {
				parts = append(parts, t)
			}
		case "tool_use", "tool_result":
			toolUse = true
			if b.Name != "" {
				parts = append(parts, fmt.Sprintf("[tool: %s]", b.Name))
			}
		}
	}
	return strings.Join(parts, "\n"), toolUse
}

// FindSessions discovers transcript files under root matching the glob
// pattern (default **/*.jsonl), sorted for deterministic processing.
func FindSessions(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "**/*.jsonl"
	}
	paths, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("globbing sessions under %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// SourceID derives a stable source identifier from a transcript path.
func SourceID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
