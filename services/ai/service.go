package ai

import (
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"golang.org/x/net/context"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/mailsift/mailsift/internal/logger"
	"github.com/mailsift/mailsift/internal/tracing"
)

type aiService struct {
	cfg      *config.AIConfig
	settings interfaces.SettingsService
	privacy  interfaces.PrivacyPolicy
	progress interfaces.ProgressEmitter
	gate     *confirmationGate
	log      logger.Logger
}

func NewAIService(
	cfg *config.AIConfig,
	settings interfaces.SettingsService,
	privacy interfaces.PrivacyPolicy,
	progress interfaces.ProgressEmitter,
	log logger.Logger,
) interfaces.AIService {
	return &aiService{
		cfg:      cfg,
		settings: settings,
		privacy:  privacy,
		progress: progress,
		gate:     newConfirmationGate(),
		log:      log,
	}
}

// ProcessMessage routes one message to a backend according to the mailbox
// mode and returns a usable result even when the backend fails: the failed
// message degrades to keyword-derived values with the raw error recorded.
// The only error returned is context cancellation.
func (s *aiService) ProcessMessage(ctx context.Context, request dto.ClassifyEmailRequest) (*dto.ClassificationResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.ProcessMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailboxId", request.MailboxID)

	cfg := s.effectiveConfig(ctx, request.MailboxID)
	mode := enum.GetAIMode(cfg.Mode)
	span.SetTag("mode", mode.String())

	useCloud := false
	switch mode {
	case enum.AIModeAPI:
		useCloud = true
	case enum.AIModeHybrid:
		var err error
		useCloud, err = s.decideHybrid(ctx, cfg, request)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	}
	span.SetTag("cloud", useCloud)

	var result *dto.ClassificationResult
	var backendErr error
	if useCloud {
		result, backendErr = s.classifyCloud(ctx, cfg, request)
	} else {
		result, backendErr = s.classifyLocal(ctx, cfg, request)
	}
	if backendErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tracing.TraceErr(span, backendErr)
		s.log.Warnf("classification degraded for mailbox %s: %v", request.MailboxID, backendErr)
		result = classifyByRules(request)
		result.Error = backendErr.Error()
	}
	return result, nil
}

// decideHybrid applies the privacy and complexity pre-check. Sensitive
// content stays local regardless of complexity; complex non-sensitive
// content goes to the cloud, gated on caller confirmation when configured.
// A declined confirmation routes local; only ctx cancellation errors out.
func (s *aiService) decideHybrid(ctx context.Context, cfg *dto.AIConfig, request dto.ClassifyEmailRequest) (bool, error) {
	if s.privacy.IsSensitive(request.Subject, request.BodyText) {
		return false, nil
	}
	if !s.privacy.IsComplex(request.Subject, request.BodyText) {
		return false, nil
	}
	if !cfg.ConfirmBeforeAPI {
		return true, nil
	}
	if request.SessionID == "" {
		// No session means no way to deliver a confirmation. Stay local.
		return false, nil
	}

	if _, known := s.gate.Decided(request.SessionID); !known && s.progress != nil {
		s.progress.EmitStatus(request.SessionID, enum.SyncPhaseConfirming, "cloud classification needs confirmation")
	}
	return s.gate.Await(ctx, request.SessionID)
}

func (s *aiService) classifyLocal(ctx context.Context, cfg *dto.AIConfig, request dto.ClassifyEmailRequest) (*dto.ClassificationResult, error) {
	raw, err := newOllamaClient(cfg.LocalHost).Generate(ctx, cfg.LocalModel, buildClassifyPrompt(request))
	if err != nil {
		return nil, err
	}
	result, err := parseClassifyOutput(raw, request)
	if err != nil {
		return nil, err
	}
	result.ClassifiedBy = "local:" + cfg.LocalModel
	return result, nil
}

func (s *aiService) classifyCloud(ctx context.Context, cfg *dto.AIConfig, request dto.ClassifyEmailRequest) (*dto.ClassificationResult, error) {
	client, err := newCloudClient(cfg.APIProvider, cfg.APIKey, cfg.APIModel)
	if err != nil {
		return nil, err
	}
	raw, err := client.Classify(ctx, buildClassifyPrompt(request))
	if err != nil {
		return nil, err
	}
	result, err := parseClassifyOutput(raw, request)
	if err != nil {
		return nil, err
	}
	result.ClassifiedBy = client.Attribution()
	return result, nil
}

// effectiveConfig resolves per-mailbox settings; when the settings store is
// unreachable the env defaults keep classification running.
func (s *aiService) effectiveConfig(ctx context.Context, mailboxID string) *dto.AIConfig {
	cfg, err := s.settings.GetAIConfig(ctx, mailboxID)
	if err == nil && cfg != nil {
		return cfg
	}
	if err != nil {
		s.log.Warnf("falling back to env AI config for mailbox %s: %v", mailboxID, err)
	}
	return AIConfigFromEnv(s.cfg)
}

func (s *aiService) TestLocalConnection(ctx context.Context, host, model string) (*dto.AIProbeResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.TestLocalConnection")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if host == "" {
		host = s.cfg.LocalHost
	}
	if model == "" {
		model = s.cfg.LocalModel
	}

	start := time.Now()
	models, err := newOllamaClient(host).ListModels(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tracing.TraceErr(span, err)
		return &dto.AIProbeResult{
			Reachable: false,
			Message:   err.Error(),
			LatencyMs: latency,
		}, nil
	}

	ready := modelAvailable(model, models)
	message := "connected"
	if !ready {
		message = "connected, but model " + model + " is not pulled"
	}
	return &dto.AIProbeResult{
		Reachable:       true,
		Message:         message,
		AvailableModels: models,
		ModelReady:      ready,
		LatencyMs:       latency,
	}, nil
}

func (s *aiService) TestAPIConnection(ctx context.Context, provider, apiKey, model string) (*dto.AIProbeResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "aiService.TestAPIConnection")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("provider", provider)

	client, err := newCloudClient(provider, apiKey, model)
	if err != nil {
		tracing.TraceErr(span, err)
		return &dto.AIProbeResult{Reachable: false, Message: err.Error()}, nil
	}

	start := time.Now()
	models, err := client.ListModels(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tracing.TraceErr(span, err)
		return &dto.AIProbeResult{
			Reachable: false,
			Message:   err.Error(),
			LatencyMs: latency,
		}, nil
	}

	ready := modelAvailable(client.model, models)
	message := "connected"
	if !ready {
		// Some providers list only a subset of what they serve, so an
		// absent model is a note rather than a failure.
		message = "connected, model " + client.model + " not in catalog"
	}
	return &dto.AIProbeResult{
		Reachable:       true,
		Message:         message,
		AvailableModels: models,
		ModelReady:      ready,
		LatencyMs:       latency,
	}, nil
}

func (s *aiService) Confirm(sessionID string, approved bool) bool {
	return s.gate.Answer(sessionID, approved)
}

func (s *aiService) ReleaseSession(sessionID string) {
	s.gate.Release(sessionID)
}

func modelAvailable(model string, available []string) bool {
	for _, m := range available {
		if m == model || strings.HasPrefix(m, model+":") {
			return true
		}
	}
	return false
}
