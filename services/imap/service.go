package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/logger"
	"github.com/mailsift/mailsift/internal/tracing"
)

// IMAPAdapter dials the configured mailbox on demand. Unlike a
// monitoring engine it holds no persistent connections: each sync run
// opens one session and closes it when the run ends.
type IMAPAdapter struct {
	cfg *config.IMAPConfig
	log logger.Logger
}

func NewIMAPAdapter(cfg *config.IMAPConfig, log logger.Logger) interfaces.IMAPClient {
	return &IMAPAdapter{
		cfg: cfg,
		log: log,
	}
}

func (a *IMAPAdapter) Connect(ctx context.Context) (interfaces.IMAPSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPAdapter.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", a.cfg.Server)
	span.SetTag("port", a.cfg.Port)

	creds := &interfaces.IMAPCredentials{
		Server:   a.cfg.Server,
		Port:     a.cfg.Port,
		Username: a.cfg.Username,
		Password: a.cfg.Password,
	}

	c, err := dialAndLogin(ctx, creds)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyConnectError(err)
	}

	span.SetTag("success", true)
	return &imapSession{
		client:    c,
		mailboxID: a.cfg.MailboxID,
	}, nil
}

// TestConnection probes the server with the given credentials, listing
// folders and counting INBOX messages. Used by the settings endpoints;
// never touches message content.
func (a *IMAPAdapter) TestConnection(ctx context.Context, creds *interfaces.IMAPCredentials) (*interfaces.IMAPCheck, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPAdapter.TestConnection")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", creds.Server)

	c, err := dialAndLogin(ctx, creds)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyConnectError(err)
	}
	defer logoutWithTimeout(creds.Server, c)

	check := &interfaces.IMAPCheck{}

	c.Timeout = 30 * time.Second
	mailboxes := make(chan *goimap.MailboxInfo, 20)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", mailboxes)
	}()
	for m := range mailboxes {
		check.Folders = append(check.Folders, m.Name)
	}
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyConnectError(err)
	}

	status, err := c.Select("INBOX", true)
	c.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, classifyConnectError(err)
	}
	check.InboxMessages = status.Messages

	span.SetTag("folders", len(check.Folders))
	return check, nil
}

// dialAndLogin establishes a TLS connection and authenticates, in the
// engine's usual shape: dialer with timeout and keep-alive, capability
// check, bounded login.
func dialAndLogin(ctx context.Context, creds *interfaces.IMAPCredentials) (*client.Client, error) {
	serverAddr := fmt.Sprintf("%s:%d", creds.Server, creds.Port)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	tlsConfig := &tls.Config{
		ServerName: creds.Server,
	}

	c, err := client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to get capabilities: %w", err)
	}
	log.Printf("[%s] Server capabilities: %v", creds.Server, caps)

	loginSpan, _ := opentracing.StartSpanFromContext(ctx, "IMAPAdapter.login")
	loginSpan.SetTag("username", creds.Username)

	c.Timeout = 30 * time.Second
	err = c.Login(creds.Username, creds.Password)
	if err != nil {
		c.Logout()
		tracing.TraceErr(loginSpan, err)
		loginSpan.Finish()
		return nil, fmt.Errorf("failed to login as %s: %w", creds.Username, err)
	}
	loginSpan.Finish()

	// No timeout for normal operations; long fetches set their own
	c.Timeout = 0

	log.Printf("[%s] Successfully connected and logged in to %s", creds.Username, serverAddr)
	return c, nil
}

// logoutWithTimeout closes the connection without letting a stuck
// server hold the caller hostage.
func logoutWithTimeout(label string, c *client.Client) {
	if c == nil {
		return
	}

	logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.Timeout = 5 * time.Second
	done := make(chan error, 1)
	go func() {
		done <- c.Logout()
		close(done)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("[%s] Error during logout: %v", label, err)
		}
	case <-logoutCtx.Done():
		log.Printf("[%s] Logout timed out", label)
	}
}
