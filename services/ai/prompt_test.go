package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/enum"
)

func TestBuildClassifyPrompt(t *testing.T) {
	// Arrange
	request := dto.ClassifyEmailRequest{
		Subject:     "Midterm arrangements",
		FromAddress: "prof@campus.edu",
		FromName:    "Prof. Chan",
		BodyText:    "The midterm covers chapters 1-5.",
	}

	// Act
	prompt := buildClassifyPrompt(request)

	// Assert
	assert.Contains(t, prompt, "Midterm arrangements")
	assert.Contains(t, prompt, "Prof. Chan <prof@campus.edu>")
	assert.Contains(t, prompt, "The midterm covers chapters 1-5.")
	assert.Contains(t, prompt, `"priority"`)
}

func TestBuildClassifyPrompt_TruncatesLongBodies(t *testing.T) {
	// Arrange
	request := dto.ClassifyEmailRequest{
		Subject:  "Minutes",
		BodyText: strings.Repeat("x", promptBodyLimit+500),
	}

	// Act
	prompt := buildClassifyPrompt(request)

	// Assert
	assert.Less(t, len(prompt), len(classifyInstruction)+promptBodyLimit+200)
}

func TestParseClassifyOutput_CleanJSON(t *testing.T) {
	// Arrange
	raw := `{"priority": "urgent", "summary": "Exam moved to Friday.", "deadline": "2026-02-15", "tags": ["Exam", "Schedule"]}`

	// Act
	result, err := parseClassifyOutput(raw, dto.ClassifyEmailRequest{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.PriorityUrgent, result.Priority)
	assert.Equal(t, "Exam moved to Friday.", result.Summary)
	require.NotNil(t, result.Deadline)
	assert.Equal(t, "2026-02-15", result.Deadline.Format("2006-01-02"))
	assert.Equal(t, []string{"exam", "schedule"}, result.Tags)
}

func TestParseClassifyOutput_CodeFences(t *testing.T) {
	// Arrange
	raw := "```json\n{\"priority\": \"important\", \"summary\": \"s\", \"deadline\": \"\", \"tags\": [\"grade\"]}\n```"

	// Act
	result, err := parseClassifyOutput(raw, dto.ClassifyEmailRequest{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.PriorityImportant, result.Priority)
	assert.Equal(t, []string{"grade"}, result.Tags)
}

func TestParseClassifyOutput_ChatterAroundJSON(t *testing.T) {
	// Arrange
	raw := `Sure! Here is the classification you asked for:
{"priority": "archive", "summary": "", "deadline": "", "tags": []}
Let me know if you need anything else.`
	request := dto.ClassifyEmailRequest{
		Subject:     "Weekly digest",
		BodyText:    "Campus news roundup.",
		FromAddress: "news@campus.edu",
	}

	// Act
	result, err := parseClassifyOutput(raw, request)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.PriorityArchive, result.Priority)
	// Empty model tags fall back to the keyword extractor.
	assert.Contains(t, result.Tags, "newsletter")
}

func TestParseClassifyOutput_UnknownPriorityDefaultsToNormal(t *testing.T) {
	// Arrange
	raw := `{"priority": "critical", "summary": "", "deadline": "", "tags": ["x"]}`

	// Act
	result, err := parseClassifyOutput(raw, dto.ClassifyEmailRequest{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, enum.PriorityNormal, result.Priority)
}

func TestParseClassifyOutput_NoJSON(t *testing.T) {
	// Act
	result, err := parseClassifyOutput("urgent", dto.ClassifyEmailRequest{})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestParseClassifyOutput_MalformedJSON(t *testing.T) {
	// Act
	result, err := parseClassifyOutput(`{"priority": urgent}`, dto.ClassifyEmailRequest{})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestResolveDeadline_ModelDateWins(t *testing.T) {
	// Arrange
	request := dto.ClassifyEmailRequest{Subject: "Due 2026-01-01", BodyText: ""}

	// Act
	deadline := resolveDeadline("2026-04-30", request)

	// Assert
	require.NotNil(t, deadline)
	assert.Equal(t, "2026-04-30", deadline.Format("2006-01-02"))
}

func TestResolveDeadline_FallsBackToText(t *testing.T) {
	// Arrange
	request := dto.ClassifyEmailRequest{Subject: "提交截止 3月9日", BodyText: ""}

	// Act
	deadline := resolveDeadline("soon", request)

	// Assert
	require.NotNil(t, deadline)
	assert.Equal(t, "03-09", deadline.Format("01-02"))
}

func TestResolveDeadline_NullLiteralIgnored(t *testing.T) {
	// Act
	deadline := resolveDeadline("null", dto.ClassifyEmailRequest{Subject: "Hi", BodyText: "No dates here."})

	// Assert
	assert.Nil(t, deadline)
}
