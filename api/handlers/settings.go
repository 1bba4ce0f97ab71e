package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/tracing"
	"github.com/mailsift/mailsift/services"
)

type SettingsHandler struct {
	settingsService interfaces.SettingsService
	aiService       interfaces.AIService
	imapClient      interfaces.IMAPClient
	cfg             *config.Config
}

func NewSettingsHandler(s *services.Services, cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{
		settingsService: s.SettingsService,
		aiService:       s.AIService,
		imapClient:      s.IMAPClient,
		cfg:             cfg,
	}
}

func (h *SettingsHandler) mailboxOrDefault(mailboxID string) string {
	if mailboxID != "" {
		return mailboxID
	}
	return h.cfg.IMAPConfig.MailboxID
}

// GetAISettings returns the effective AI configuration with the API key
// masked.
func (h *SettingsHandler) GetAISettings() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SettingsHandler.GetAISettings")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		mailboxID := h.mailboxOrDefault(c.Query("mailboxId"))
		tracing.TagMailbox(span, mailboxID)

		aiConfig, err := h.settingsService.GetAIConfig(ctx, mailboxID)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, aiConfig.Masked())
	}
}

// UpdateAISettings applies a partial update. Omitted fields keep their
// stored value; a masked API key keeps the stored key.
func (h *SettingsHandler) UpdateAISettings() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SettingsHandler.UpdateAISettings")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var update dto.AIConfigUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		mailboxID := h.mailboxOrDefault(c.Query("mailboxId"))
		tracing.TagMailbox(span, mailboxID)

		aiConfig, err := h.settingsService.UpdateAIConfig(ctx, mailboxID, update)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, aiConfig.Masked())
	}
}

type imapTestRequest struct {
	Server   string `json:"server"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// TestIMAP probes the IMAP server. Without a body the configured
// credentials are used; with one the supplied credentials are tried
// instead, which lets a client validate settings before saving them.
// A failed probe is a result, not a handler error.
func (h *SettingsHandler) TestIMAP() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SettingsHandler.TestIMAP")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var creds *interfaces.IMAPCredentials
		if c.Request.ContentLength > 0 {
			var request imapTestRequest
			if err := c.ShouldBindJSON(&request); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if request.Server != "" {
				creds = &interfaces.IMAPCredentials{
					Server:   request.Server,
					Port:     request.Port,
					Username: request.Username,
					Password: request.Password,
				}
			}
		}

		check, err := h.imapClient.TestConnection(ctx, creds)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusOK, gin.H{"ok": false, "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":            true,
			"folders":       check.Folders,
			"inboxMessages": check.InboxMessages,
		})
	}
}

type localAITestRequest struct {
	Host  string `json:"host"`
	Model string `json:"model"`
}

// TestLocalAI probes the local model runtime. Empty fields fall back to
// the configured host and model.
func (h *SettingsHandler) TestLocalAI() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SettingsHandler.TestLocalAI")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request localAITestRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&request); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		result, err := h.aiService.TestLocalConnection(ctx, request.Host, request.Model)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

type apiAITestRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
}

// TestAPIAI probes a cloud provider. Empty fields and a masked API key
// fall back to the stored configuration, so a client can re-test saved
// credentials without ever seeing the key.
func (h *SettingsHandler) TestAPIAI() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SettingsHandler.TestAPIAI")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request apiAITestRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&request); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if request.Provider == "" || request.Model == "" || request.APIKey == "" || dto.IsMaskedSecret(request.APIKey) {
			mailboxID := h.mailboxOrDefault(c.Query("mailboxId"))
			stored, err := h.settingsService.GetAIConfig(ctx, mailboxID)
			if err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if request.Provider == "" {
				request.Provider = stored.APIProvider
			}
			if request.Model == "" {
				request.Model = stored.APIModel
			}
			if request.APIKey == "" || dto.IsMaskedSecret(request.APIKey) {
				request.APIKey = stored.APIKey
			}
		}

		result, err := h.aiService.TestAPIConnection(ctx, request.Provider, request.APIKey, request.Model)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
