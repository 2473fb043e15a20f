// Package printer drives a remote rendering engine to turn structured resume
// documents into stored PDF documents and preview images.
package printer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"resumepress/internal/config"
)

// Artifact categories understood by the publisher.
const (
	CategoryResumes  = "resumes"
	CategoryPreviews = "previews"
)

// ArtifactPublisher persists a final buffer and returns a durable URL.
type ArtifactPublisher interface {
	Publish(ctx context.Context, ownerID uint, category string, data []byte, name string, contentType string) (string, error)
}

// Service is the render-and-assemble pipeline. One Service is shared across
// requests; every generation attempt acquires its own session.
type Service struct {
	sessions  *SessionManager
	publisher ArtifactPublisher
	target    Target
	logger    *slog.Logger
}

// NewService resolves the render target once (malformed origins are fatal
// here) and wires the session manager.
func NewService(cfg config.PrinterConfig, publisher ArtifactPublisher, logger *slog.Logger) (*Service, error) {
	target, err := ResolveTarget(cfg.PublicURL, cfg.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("resolve render target: %w", err)
	}

	return &Service{
		sessions:  NewSessionManager(cfg, logger),
		publisher: publisher,
		target:    target,
		logger:    logger,
	}, nil
}

func (s *Service) printURL(documentID string) string {
	return fmt.Sprintf("%s/print/%s", strings.TrimRight(s.target.URL, "/"), documentID)
}

// GenerateResume renders the resume into one stored multi-page document and
// returns its URL. With a physical format the formatted branch produces one
// buffer holding a page per logical page; without one the continuous branch
// produces one custom-sized buffer per logical page.
func (s *Service) GenerateResume(ctx context.Context, req RenderRequest, format PageFormat) (string, error) {
	if !format.Valid() {
		return "", fmt.Errorf("unsupported page format %q", format)
	}
	if req.PageCount() == 0 {
		return "", fmt.Errorf("resume %s has no pages", req.DocumentID)
	}

	strategy := strategyFor(format)

	var resultURL string
	err := withRetry(ctx, s.logger, req.DocumentID, func(ctx context.Context) error {
		sess, err := s.sessions.AcquireSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		if s.target.RewriteAssets {
			if err := sess.InterceptAssetRequests(s.target.StorageURL); err != nil {
				return err
			}
		}

		buffers, err := strategy.Capture(sess, s.printURL(req.DocumentID), req)
		if err != nil {
			return err
		}

		final, err := AssemblePageBuffers(buffers)
		if err != nil {
			return err
		}

		url, err := s.publisher.Publish(ctx, req.OwnerID, CategoryResumes, final, req.DocumentID, "application/pdf")
		if err != nil {
			return stageError(CodePublishFailure, "publish resume %s: %w", req.DocumentID, err)
		}
		resultURL = url
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("resume generated",
		slog.String("document_id", req.DocumentID),
		slog.Uint64("owner_id", uint64(req.OwnerID)),
	)
	return resultURL, nil
}

// GeneratePreview captures a single snapshot image of the resume and returns
// its URL. Previews retry independently of document generations.
func (s *Service) GeneratePreview(ctx context.Context, req RenderRequest) (string, error) {
	var resultURL string
	err := withRetry(ctx, s.logger, req.DocumentID, func(ctx context.Context) error {
		sess, err := s.sessions.AcquireSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		if s.target.RewriteAssets {
			if err := sess.InterceptAssetRequests(s.target.StorageURL); err != nil {
				return err
			}
		}

		image, err := capturePreview(sess, s.printURL(req.DocumentID), req)
		if err != nil {
			return err
		}

		url, err := s.publisher.Publish(ctx, req.OwnerID, CategoryPreviews, image, req.DocumentID, "image/jpeg")
		if err != nil {
			return stageError(CodePublishFailure, "publish preview %s: %w", req.DocumentID, err)
		}
		resultURL = url
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("preview generated",
		slog.String("document_id", req.DocumentID),
		slog.Uint64("owner_id", uint64(req.OwnerID)),
	)
	return resultURL, nil
}

// EngineVersion asks the remote rendering engine for its version string.
// Used by health checks.
func (s *Service) EngineVersion(ctx context.Context) (string, error) {
	return s.sessions.Version(ctx)
}
