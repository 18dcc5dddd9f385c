// Package platform is the thin client for the messaging platform's HTTP API:
// media lookup and download, message sends, template sends, and threaded
// replies. No retry logic lives here; callers decide what is worth retrying.
package platform

import (
	"context"

	"github.com/lingobot/pkg/models"
)

// Platform is the outbound surface of the messaging provider
type Platform interface {
	// ResolveMediaURL exchanges a media id for a short-lived download URL
	ResolveMediaURL(ctx context.Context, mediaID string) (string, error)

	// Download streams the media behind url into a new file under destDir
	// and returns the local path
	Download(ctx context.Context, url, destDir string) (string, error)

	// SendText sends a plain text message and returns the platform's
	// message id
	SendText(ctx context.Context, recipient, text string) (string, error)

	// ReplyInThread sends text as a contextual reply to an earlier message
	ReplyInThread(ctx context.Context, targetMessageID, recipient, text string) error

	// SendTemplate sends a pre-approved message template
	SendTemplate(ctx context.Context, recipient, templateName string) error

	// SendButtons sends an interactive reply-button message
	SendButtons(ctx context.Context, recipient string, spec models.ButtonSpec) error
}
