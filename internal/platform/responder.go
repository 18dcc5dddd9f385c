package platform

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lingobot/pkg/models"
)

// ResponseDispatcher delivers a ProcessingResult back to the user over the
// messaging platform
type ResponseDispatcher struct {
	platform Platform
	logger   zerolog.Logger
}

// NewResponseDispatcher creates a dispatcher over the given platform client
func NewResponseDispatcher(platform Platform, logger zerolog.Logger) *ResponseDispatcher {
	return &ResponseDispatcher{platform: platform, logger: logger}
}

// Dispatch sends the result to its recipient. Skip results send nothing.
func (rd *ResponseDispatcher) Dispatch(ctx context.Context, result models.ProcessingResult) error {
	switch result.Kind {
	case models.ResultSkip:
		return nil
	case models.ResultText:
		_, err := rd.platform.SendText(ctx, result.UserID, result.Message)
		return err
	case models.ResultTemplate:
		return rd.platform.SendTemplate(ctx, result.UserID, result.Template)
	case models.ResultButtons:
		return rd.platform.SendButtons(ctx, result.UserID, *result.Buttons)
	}

	rd.logger.Warn().Str("kind", string(result.Kind)).Msg("unknown result kind, dropping")
	return nil
}
