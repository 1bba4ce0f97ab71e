package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/utils"
)

// promptBodyLimit bounds how much body text goes to a model. Long bodies
// add cost without improving the classification.
const promptBodyLimit = 1500

const classifyInstruction = `You are an email triage assistant for a university mailbox.
Classify the email below and respond with strict JSON only, no prose, no code fences:
{"priority": "...", "summary": "...", "deadline": "...", "tags": ["..."]}

priority is one of: urgent, important, normal, archive.
- urgent: deadline within 3 days, exam notices, urgent administrative notices
- important: assignments, quizzes, grades, registration notices
- normal: general announcements, event invitations, news
- archive: confirmations, advertisements, expired content

summary: 2-3 sentences covering the key information, in the language the email is written in. Empty string when the body is trivial.
deadline: the action deadline as YYYY-MM-DD, or "" when there is none.
tags: 2-4 short lowercase keywords.`

// buildClassifyPrompt renders the single-call prompt shared by the local
// and cloud backends.
func buildClassifyPrompt(request dto.ClassifyEmailRequest) string {
	body := request.BodyText
	if len(body) > promptBodyLimit {
		body = body[:promptBodyLimit]
	}
	var sb strings.Builder
	sb.WriteString(classifyInstruction)
	sb.WriteString("\n\nFrom: ")
	sb.WriteString(request.FromName)
	sb.WriteString(" <")
	sb.WriteString(request.FromAddress)
	sb.WriteString(">\nSubject: ")
	sb.WriteString(request.Subject)
	sb.WriteString("\nBody:\n")
	sb.WriteString(body)
	return sb.String()
}

type llmPayload struct {
	Priority string   `json:"priority"`
	Summary  string   `json:"summary"`
	Deadline string   `json:"deadline"`
	Tags     []string `json:"tags"`
}

// parseClassifyOutput turns raw model output into a ClassificationResult.
// Models wrap JSON in code fences or prepend chatter often enough that the
// parser cuts to the outermost object before unmarshalling.
func parseClassifyOutput(raw string, request dto.ClassifyEmailRequest) (*dto.ClassificationResult, error) {
	jsonPart := extractJSONObject(raw)
	if jsonPart == "" {
		return nil, fmt.Errorf("no JSON object in model output: %s", utils.Snippet(raw, 120))
	}

	var payload llmPayload
	if err := json.Unmarshal([]byte(jsonPart), &payload); err != nil {
		return nil, fmt.Errorf("malformed model output: %w", err)
	}

	result := &dto.ClassificationResult{
		Priority: enum.GetPriority(strings.ToLower(strings.TrimSpace(payload.Priority))),
		Summary:  strings.TrimSpace(payload.Summary),
		Tags:     normalizeTags(payload.Tags),
	}
	result.Deadline = resolveDeadline(payload.Deadline, request)
	if len(result.Tags) == 0 {
		result.Tags = extractTagsByRules(request)
	}
	return result, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// resolveDeadline prefers the model-provided date and falls back to the
// shared keyword parser over subject and body.
func resolveDeadline(modelDate string, request dto.ClassifyEmailRequest) *time.Time {
	modelDate = strings.TrimSpace(modelDate)
	if modelDate != "" && !strings.EqualFold(modelDate, "null") && !strings.EqualFold(modelDate, "none") {
		if parsed, err := time.Parse("2006-01-02", modelDate); err == nil {
			return &parsed
		}
		if parsed := utils.ParseDeadline(modelDate); parsed != nil {
			return parsed
		}
	}
	return utils.ParseDeadline(request.Subject + " " + request.BodyText)
}
