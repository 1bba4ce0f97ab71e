package ai

import (
	"strings"

	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/utils"
)

const attributionNone = dto.AttributionNone

var (
	urgentKeywords = []string{
		"urgent", "紧急", "deadline", "截止", "due", "考试", "exam",
		"immediately", "立即", "asap", "重要通知",
	}

	importantKeywords = []string{
		"assignment", "作业", "quiz", "测验", "grade", "成绩",
		"submission", "提交", "注册", "register",
	}

	archiveKeywords = []string{
		"newsletter", "unsubscribe", "no-reply", "noreply", "退订", "通讯",
	}

	tagKeywords = []struct {
		tag      string
		keywords []string
	}{
		{"assignment", []string{"assignment", "作业", "homework"}},
		{"deadline", []string{"deadline", "截止", "due"}},
		{"exam", []string{"exam", "考试", "quiz", "测验"}},
		{"lecture", []string{"lecture", "课程", "class"}},
		{"career", []string{"career", "招聘", "job", "实习"}},
		{"newsletter", []string{"newsletter", "通讯", "news"}},
		{"grade", []string{"grade", "成绩", "score"}},
		{"project", []string{"project", "项目"}},
	}
)

const maxTags = 4

// classifyByRules produces a classification without any model call. It backs
// the degraded path when a backend fails and keeps keyword parity with the
// local and cloud prompts so fallbacks stay predictable.
func classifyByRules(request dto.ClassifyEmailRequest) *dto.ClassificationResult {
	content := strings.ToLower(request.Subject + " " + request.BodyText)

	priority := enum.PriorityNormal
	for _, kw := range urgentKeywords {
		if strings.Contains(content, kw) {
			priority = enum.PriorityUrgent
			break
		}
	}
	if priority == enum.PriorityNormal {
		for _, kw := range importantKeywords {
			if strings.Contains(content, kw) {
				priority = enum.PriorityImportant
				break
			}
		}
	}
	if priority == enum.PriorityNormal {
		sender := strings.ToLower(request.FromAddress)
		for _, kw := range archiveKeywords {
			if strings.Contains(content, kw) || strings.Contains(sender, kw) {
				priority = enum.PriorityArchive
				break
			}
		}
	}

	return &dto.ClassificationResult{
		Priority:     priority,
		Summary:      utils.Snippet(request.BodyText, 200),
		Deadline:     utils.ParseDeadline(request.Subject + " " + request.BodyText),
		Tags:         extractTagsByRules(request),
		ClassifiedBy: attributionNone,
	}
}

func extractTagsByRules(request dto.ClassifyEmailRequest) []string {
	content := strings.ToLower(request.Subject + " " + request.BodyText)

	var tags []string
	for _, entry := range tagKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(content, kw) {
				tags = append(tags, entry.tag)
				break
			}
		}
		if len(tags) == maxTags {
			return tags
		}
	}

	if len(tags) < maxTags {
		if domain := utils.ExtractDomainFromEmail(request.FromAddress); domain != "" {
			tags = append(tags, domain)
		}
	}
	return tags
}

// normalizeTags lowercases model-provided tags and enforces the same bounds
// the rule extractor honors.
func normalizeTags(raw []string) []string {
	var tags []string
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || len(tag) > 20 {
			continue
		}
		if utils.IsStringInSlice(tag, tags) {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
