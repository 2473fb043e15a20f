package printer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"

	"resumepress/internal/config"
)

// SessionManager opens short-lived sessions against a pre-existing remote
// browser. It never launches a browser of its own and never retries a failed
// connection; retry is the caller's policy, applied to whole attempts.
type SessionManager struct {
	controlURL        string
	ignoreHTTPSErrors bool
	logger            *slog.Logger
}

func NewSessionManager(cfg config.PrinterConfig, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		controlURL:        buildControlURL(cfg.ChromeURL, cfg.ChromeToken),
		ignoreHTTPSErrors: cfg.IgnoreHTTPSErrors,
		logger:            logger,
	}
}

func buildControlURL(endpoint, token string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if token == "" {
		return endpoint
	}
	return fmt.Sprintf("%s?token=%s", endpoint, url.QueryEscape(token))
}

// Session is a live handle to one remote browser tab. It is owned by exactly
// one generation attempt and must be closed on every exit path.
type Session struct {
	browser   *rod.Browser
	page      *rod.Page
	router    *rod.HijackRouter
	transport *cdp.WebSocket
	logger    *slog.Logger
}

// AcquireSession connects to the remote rendering engine and opens one tab.
// The websocket is dialed and owned here so teardown can sever the control
// connection itself; the shared engine is never asked to shut down.
func (m *SessionManager) AcquireSession(ctx context.Context) (*Session, error) {
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, m.controlURL, nil); err != nil {
		return nil, stageError(CodeBrowserUnavailable, "connect rendering engine: %w", err)
	}

	browser := rod.New().Client(cdp.New().Start(ws)).Context(ctx)
	if err := browser.Connect(); err != nil {
		_ = ws.Close()
		return nil, stageError(CodeBrowserUnavailable, "attach rendering engine: %w", err)
	}

	if m.ignoreHTTPSErrors {
		if err := browser.IgnoreCertErrors(true); err != nil {
			_ = ws.Close()
			return nil, stageError(CodeBrowserUnavailable, "ignore cert errors: %w", err)
		}
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = ws.Close()
		return nil, stageError(CodeBrowserUnavailable, "create page: %w", err)
	}

	return &Session{
		browser:   browser,
		page:      page,
		transport: ws,
		logger:    m.logger,
	}, nil
}

// Version connects, queries the engine's version string and disconnects.
// Diagnostic only.
func (m *SessionManager) Version(ctx context.Context) (string, error) {
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, m.controlURL, nil); err != nil {
		return "", stageError(CodeBrowserUnavailable, "connect rendering engine: %w", err)
	}
	defer func() {
		_ = ws.Close()
	}()

	browser := rod.New().Client(cdp.New().Start(ws)).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", stageError(CodeBrowserUnavailable, "attach rendering engine: %w", err)
	}

	version, err := browser.Version()
	if err != nil {
		return "", stageError(CodeBrowserUnavailable, "query version: %w", err)
	}
	return version.Product, nil
}

// Page exposes the session's single tab.
func (s *Session) Page() *rod.Page {
	return s.page
}

// InterceptAssetRequests rewrites every outgoing request targeting the
// storage origin to the container alias, so assets resolve inside the render
// sandbox. Each intercepted request is continued exactly once; everything
// else passes through untouched. The router lives for the session only.
func (s *Session) InterceptAssetRequests(storageOrigin string) error {
	router := s.page.HijackRequests()
	err := router.Add(storageOrigin+"*", "", func(h *rod.Hijack) {
		rewritten := RewriteAssetURL(h.Request.URL().String())
		h.ContinueRequest(&proto.FetchContinueRequest{URL: rewritten})
	})
	if err != nil {
		return stageError(CodeCaptureFailure, "install request interception: %w", err)
	}

	go router.Run()
	s.router = router
	return nil
}

// Close tears the session down: hijack router first, then the tab, then the
// control connection. The engine is shared, so teardown closes our websocket
// and never the browser itself. Safe to call regardless of which stage
// failed.
func (s *Session) Close() {
	if s.router != nil {
		if err := s.router.Stop(); err != nil && s.logger != nil {
			s.logger.Warn("stop hijack router failed", slog.Any("error", err))
		}
		s.router = nil
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil && s.logger != nil {
			s.logger.Warn("close page failed", slog.Any("error", err))
		}
		s.page = nil
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil && s.logger != nil {
			s.logger.Warn("close control connection failed", slog.Any("error", err))
		}
		s.transport = nil
	}
	s.browser = nil
}
