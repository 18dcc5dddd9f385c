package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lingobot/internal/event"
	"github.com/lingobot/pkg/models"
)

// VerifyWebhookHandler answers Meta's subscription handshake: echo
// hub.challenge back when the verify token matches.
func (s *Server) VerifyWebhookHandler(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode != "subscribe" || token != s.opts.VerifyToken {
		log.Printf("[WARN] Webhook verification rejected (mode=%s)", mode)
		return c.NoContent(http.StatusForbidden)
	}

	log.Printf("[INFO] Webhook verified")
	return c.String(http.StatusOK, challenge)
}

// WebhookHandler handles incoming message events
func (s *Server) WebhookHandler(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.Printf("[ERROR] Failed to read webhook body: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}

	if s.opts.AppSecret != "" {
		if !validSignature(body, c.Request().Header.Get("X-Hub-Signature-256"), s.opts.AppSecret) {
			log.Printf("[WARN] Webhook signature mismatch")
			return c.JSON(http.StatusForbidden, map[string]string{"error": "invalid signature"})
		}
	}

	var payload event.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[ERROR] Failed to parse webhook payload: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
	}

	result := s.dispatcher.Handle(c.Request().Context(), &payload)

	if result.Kind != models.ResultSkip {
		log.Printf("[INFO] Webhook processed: kind=%s user=%s elapsed=%s", result.Kind, result.UserID, result.Elapsed)
		s.deliver(result)
	}

	// Always 200: the platform retries non-2xx deliveries, and retrying a
	// handled event only feeds the dedup gate
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

// deliver sends the acknowledgment reply and persists the exchange when
// asked to, both off the request path.
func (s *Server) deliver(result models.ProcessingResult) {
	s.tasks.Go("deliver-response", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.PersistTimeout)
		defer cancel()
		return s.responder.Dispatch(ctx, result)
	})

	if result.ShouldPersist && result.UserID != "" {
		s.tasks.Go("persist-exchange", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.PersistTimeout)
			defer cancel()
			return s.convo.SaveResponse(ctx, result.UserID, result.UserMessage, result.Message, result.EventID)
		})
	}
}

func validSignature(body []byte, header, secret string) bool {
	signature, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
