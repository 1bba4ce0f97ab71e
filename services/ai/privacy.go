package ai

import (
	"regexp"
	"strings"

	"github.com/mailsift/mailsift/interfaces"
)

// Keyword lists cover both English and Chinese phrasings since campus
// mailboxes routinely mix the two in a single message.
var (
	credentialKeywords = []string{
		"password", "密码",
		"verification code", "验证码",
		"pin",
		"credit card", "信用卡",
		"account number", "银行账号",
		"id number", "身份证号",
		"passport", "护照",
		"hkid", "香港身份证",
		"api key", "api_key",
		"token",
		"secret",
		"private key",
	}

	personalKeywords = []string{
		"transcript", "成绩单",
		"gpa",
		"grade", "成绩",
		"ranking", "排名",
		"disciplinary", "处分",
		"medical",
		"health", "健康",
		"counseling", "心理咨询",
		"therapy",
		"diagnosis",
	}

	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}`),
		regexp.MustCompile(`\d{17}[\dXx]`),
		regexp.MustCompile(`[A-Z]{1,2}\d{6,7}[A-Z0-9]?`),
		regexp.MustCompile(`\d{3}[-.]?\d{3}[-.]?\d{4}`),
	}

	complexityMarkers = []string{
		"please review", "please advise", "please confirm", "could you",
		"would you", "let me know", "follow up", "follow-up",
		"请回复", "请确认", "请查收", "烦请",
	}
)

type privacyPolicy struct{}

// NewPrivacyPolicy returns the default keyword and pattern based policy used
// to keep credential and personal-record content away from cloud providers.
func NewPrivacyPolicy() interfaces.PrivacyPolicy {
	return &privacyPolicy{}
}

func (p *privacyPolicy) IsSensitive(subject, body string) bool {
	lowered := strings.ToLower(subject + "\n" + body)
	for _, keyword := range credentialKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	for _, keyword := range personalKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	raw := subject + "\n" + body
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(raw) {
			return true
		}
	}
	return false
}

func (p *privacyPolicy) IsComplex(subject, body string) bool {
	if len(body) > 500 {
		return true
	}
	if strings.Count(strings.TrimSpace(body), "\n\n") > 3 {
		return true
	}
	lowered := strings.ToLower(subject + "\n" + body)
	for _, marker := range complexityMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return strings.Count(body, "?")+strings.Count(body, "？") > 2
}
