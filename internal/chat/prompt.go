package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/maestro-ai/maestro/internal/data"
	"github.com/maestro-ai/maestro/internal/llm"
	"github.com/maestro-ai/maestro/internal/skills"
)

// systemInstruction is the fixed contract sent to the model on every
// turn. The date is injected so "what day is tomorrow" style questions
// work without a skill round trip.
const systemInstruction = `You are Maestro, a conversation-aware assistant that can play media, look things up, and answer questions for the user. Today is %s.

Answer ONLY with a single minified JSON object. No Markdown fences, no text before or after it. The shape is exactly:

{"reply":"what you say to the user","action":{"type":"<action type>","params":{}}}

Rules:
- "reply" is always required; it is shown to the user verbatim.
- For plain conversation set "action" to {"type":"none","params":{}}.
- Use the conversation history to resolve follow-ups: "another one" repeats the last action with a fresh query, "what about paris" re-runs the last action for paris.
- For vague media requests ("play something", "play a song") you MUST invent a concrete, well-known query yourself. Never emit a placeholder.

Action types you may use:
%s`

// skillCatalog documents each dispatchable action for the model: the
// exact parameter names here are what the connectors expect.
var skillCatalog = []struct {
	name  string
	usage string
}{
	{skills.SearchVideo, `play or show a video. params: {"query":"<video topic>"}; use an empty query only if the user explicitly wants a surprise`},
	{skills.SearchTrack, `play a song. params: {"query":"<song or artist>"}`},
	{skills.GetWeather, `current weather. params: {"city":"<city name>"}`},
	{skills.GetTime, `current clock time. params: {}`},
	{skills.GetDate, `today's date. params: {}`},
	{skills.SearchWeb, `open a web search. params: {"query":"<search terms>"}`},
	{skills.OpenWebsite, `open a site. params: {"url":"<site>"}`},
	{skills.SendWhatsApp, `draft a WhatsApp message link. params: {"phone":"<number>","message":"<text>"}`},
}

// BuildPrompt assembles the chat request for one turn: the system
// instruction with today's date, the stored history in order, and the
// new user message last. The caller bounds history to the context
// window; everything passed in is replayed.
func BuildPrompt(history []*data.Message, text string, now time.Time) *llm.ChatRequest {
	var catalog strings.Builder
	for _, entry := range skillCatalog {
		fmt.Fprintf(&catalog, "- %s: %s\n", entry.name, entry.usage)
	}

	date := now.Format("Monday, January 2, 2006")

	messages := make([]llm.Message, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, llm.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	messages = append(messages, llm.Message{
		Role:    data.RoleUser,
		Content: text,
	})

	return &llm.ChatRequest{
		SystemPrompt: fmt.Sprintf(systemInstruction, date, catalog.String()),
		Messages:     messages,
	}
}
