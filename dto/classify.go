package dto

import (
	"time"

	"github.com/mailsift/mailsift/internal/enum"
)

// ClassifyEmailRequest carries one message into the classification
// router. SessionID keys the cloud-dispatch confirmation gate in hybrid
// mode; Folder feeds the tag heuristics.
type ClassifyEmailRequest struct {
	SessionID   string `json:"sessionId"`
	MailboxID   string `json:"mailboxId"`
	Folder      string `json:"folder"`
	Subject     string `json:"subject"`
	FromAddress string `json:"fromAddress"`
	FromName    string `json:"fromName"`
	BodyText    string `json:"bodyText"`
	BodyHTML    string `json:"bodyHtml"`
}

// AttributionNone marks a message that no model classified: either the
// backend failed and the keyword fallback filled the row, or the run
// pulled headers only and skipped classification altogether.
const AttributionNone = "none"

// ClassificationResult is what the router produced for one message.
// ClassifiedBy attributes the backend ("local:llama3.1:8b",
// "api:deepseek/deepseek-chat", or AttributionNone); Error carries the
// raw failure reason in the degraded case.
type ClassificationResult struct {
	Priority     enum.Priority `json:"priority"`
	Summary      string        `json:"summary"`
	Deadline     *time.Time    `json:"deadline,omitempty"`
	Tags         []string      `json:"tags"`
	ClassifiedBy string        `json:"classifiedBy"`
	Error        string        `json:"error,omitempty"`
}

// AIProbeResult reports a backend connectivity test.
type AIProbeResult struct {
	Reachable       bool     `json:"reachable"`
	Message         string   `json:"message"`
	AvailableModels []string `json:"availableModels,omitempty"`
	ModelReady      bool     `json:"modelReady"`
	LatencyMs       int64    `json:"latencyMs"`
}
