// Command tts-hook is the out-of-process editor-integration hook
// dispatcher. It reads a single JSON event from stdin, issues one or two
// HTTP calls against the TTS control API, and appends a single history
// line — always exiting 0 regardless of outcome so a misbehaving hook
// never blocks the editor.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Mizzlr/whisper-typer/internal/history"
	"github.com/Mizzlr/whisper-typer/internal/hook"
)

const ttsAPI = "http://127.0.0.1:8767"

// connectTimeout keeps a down daemon from stalling the editor; the
// request timeout covers a slow but live one.
const (
	connectTimeout = 300 * time.Millisecond
	requestTimeout = 3 * time.Second
)

func newClient() *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			DialContext: dialer.DialContext,
		},
	}
}

type hookEvent struct {
	HookEventName    string `json:"hook_event_name"`
	SessionID        string `json:"session_id"`
	Cwd              string `json:"cwd"`
	Source           string `json:"source"`
	TranscriptPath   string `json:"transcript_path"`
	ToolName         string `json:"tool_name"`
	NotificationType string `json:"notification_type"`
}

type speakRequest struct {
	Text          string `json:"text"`
	Summarize     bool   `json:"summarize"`
	EventType     string `json:"event_type"`
	StartReminder bool   `json:"start_reminder"`
	SessionID     string `json:"session_id,omitempty"`
}

type statusResponse struct {
	ModelLoaded    *bool `json:"model_loaded"`
	Speaking       bool  `json:"speaking"`
	ReminderActive bool  `json:"reminder_active"`
}

func main() {
	t0 := time.Now()

	dir, err := hook.HistoryDir()
	if err != nil {
		return
	}
	hook.CleanupStaleFiles(dir)

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return
	}

	var ev hookEvent
	if err := json.Unmarshal(input, &ev); err != nil || ev.HookEventName == "" {
		return
	}

	project := hook.ProjectName(ev.Cwd)
	isFocus := hook.IsFocusSession(dir, ev.SessionID)
	client := newClient()

	if !isTTSReachable(client) {
		saveRecord(dir, ev, project, isFocus, "skipped", "TTS API unreachable", "", false, t0)
		return
	}

	var action, detail, text string
	switch ev.HookEventName {
	case "SessionStart":
		action, detail, text = handleSessionStart(client, ev, project, isFocus)
	case "UserPromptSubmit":
		action, detail, text = handleUserPromptSubmit(client, dir, ev, project)
	case "Stop":
		action, detail, text = handleStop(client, dir, ev, project, isFocus)
	case "PermissionRequest":
		action, detail, text = handlePermission(client, ev, project)
	case "Notification":
		action, detail, text = handleNotification(client, ev, project, isFocus)
	default:
		action, detail, text = "ignored", "unknown event", ""
	}

	saveRecord(dir, ev, project, isFocus, action, detail, text, true, t0)
}

func isTTSReachable(client *http.Client) bool {
	resp, err := client.Get(ttsAPI + "/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func getStatus(client *http.Client) (*statusResponse, error) {
	resp, err := client.Get(ttsAPI + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func postJSON(client *http.Client, path string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	resp, err := client.Post(ttsAPI+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return
	}
	resp.Body.Close()
}

func isTTSIdle(client *http.Client) bool {
	st, err := getStatus(client)
	if err != nil {
		return false
	}
	return !st.Speaking && !st.ReminderActive
}

func handleSessionStart(client *http.Client, ev hookEvent, project string, isFocus bool) (string, string, string) {
	if ev.Source == "resume" || ev.Source == "compact" {
		return "skipped", "source=" + ev.Source, ""
	}
	if !isFocus {
		return "skipped", "non-focus start (" + project + ")", ""
	}

	st, err := getStatus(client)
	if err != nil {
		return "skipped", "status request failed", ""
	}
	if st.ModelLoaded == nil || !*st.ModelLoaded {
		return "skipped", "model not loaded", ""
	}

	text := "Claude Code is ready."
	postJSON(client, "/speak", speakRequest{Text: text, EventType: "session_start"})
	return "spoke", "", text
}

func handleUserPromptSubmit(client *http.Client, dir string, ev hookEvent, project string) (string, string, string) {
	if ev.SessionID != "" {
		_ = hook.WriteFocus(dir, ev.SessionID, project)
	}
	postJSON(client, "/user-input", map[string]string{"session_id": ev.SessionID})
	return "user_input", "focus=" + project, ""
}

func handleStop(client *http.Client, dir string, ev hookEvent, project string, isFocus bool) (string, string, string) {
	if ev.TranscriptPath == "" {
		return "skipped", "no transcript path", ""
	}

	text, ok := extractLastAssistantText(ev.TranscriptPath)
	if !ok {
		return "skipped", "no assistant text found", ""
	}

	if hook.IsDuplicateStop(dir, ev.SessionID, text) {
		return "skipped", "duplicate stop text", text
	}

	if isFocus {
		postJSON(client, "/speak", speakRequest{
			Text: text, Summarize: true, EventType: "stop", StartReminder: true,
		})
		return "spoke", "focus (" + project + ")", text
	}

	if isTTSIdle(client) {
		shortText := project + " finished."
		postJSON(client, "/speak", speakRequest{Text: shortText, EventType: "background_stop"})
		return "spoke_background", "non-focus idle (" + project + ")", shortText
	}
	return "skipped", "non-focus busy (" + project + ")", ""
}

func handlePermission(client *http.Client, ev hookEvent, project string) (string, string, string) {
	tool := ev.ToolName
	if tool == "" {
		tool = "unknown tool"
	}
	text := project + " needs permission for " + tool + "."
	postJSON(client, "/speak", speakRequest{Text: text, EventType: "permission", StartReminder: true})
	return "spoke", project + "/" + tool, text
}

func handleNotification(client *http.Client, ev hookEvent, project string, isFocus bool) (string, string, string) {
	if !isFocus {
		return "skipped", "non-focus notification (" + project + ")", ""
	}

	var text, eventType string
	switch ev.NotificationType {
	case "idle_prompt":
		return "skipped", "idle_prompt (redundant)", ""
	case "permission_prompt":
		text, eventType = "Permission needed.", "permission"
	case "":
		return "skipped", "no notification_type", ""
	default:
		return "skipped", "unknown notification: " + ev.NotificationType, ""
	}

	postJSON(client, "/speak", speakRequest{Text: text, EventType: eventType, StartReminder: true})
	return "spoke", ev.NotificationType, text
}

// extractLastAssistantText scans transcriptPath from the end, JSONL
// entry by entry, for the first entry of type "assistant" with a
// non-empty text block.
func extractLastAssistantText(transcriptPath string) (string, bool) {
	data, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", false
	}

	lines := strings.Split(string(data), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var entry struct {
			Type    string `json:"type"`
			Message struct {
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Type != "assistant" {
			continue
		}
		for _, block := range entry.Message.Content {
			if block.Type != "text" {
				continue
			}
			trimmed := strings.TrimSpace(block.Text)
			if trimmed == "" {
				continue
			}
			runes := []rune(trimmed)
			if len(runes) > 2000 {
				runes = runes[:2000]
			}
			return string(runes), true
		}
	}
	return "", false
}

func saveRecord(dir string, ev hookEvent, project string, isFocus bool, action, detail, text string, ttsAPIUp bool, t0 time.Time) {
	date := time.Now().Format("2006-01-02")
	path := dir + "/" + date + ".jsonl"

	rec := history.HookRecord{
		Timestamp:  hook.NowTimestamp(),
		Event:      ev.HookEventName,
		Action:     action,
		Detail:     detail,
		Text:       text,
		DurationMs: time.Since(t0).Milliseconds(),
		TTSAPIUp:   ttsAPIUp,
		SessionID:  ev.SessionID,
		Cwd:        ev.Cwd,
		Project:    project,
		IsFocus:    isFocus,
	}
	if text != "" {
		rec.TextChars = len([]rune(text))
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	w.Write(data)
	w.WriteString("\n")
	_ = w.Flush()
}
