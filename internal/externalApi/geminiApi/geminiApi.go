package geminiApi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/utils"
	"google.golang.org/genai"
)

const systemInstruction = `You are a portfolio analyst for Indian retail mutual fund investors.
You receive computed analytics for one portfolio: per-fund performance and risk
metrics, realized capital gains with tax estimates, and pairwise holding overlap.
Write a short plain-text summary for the investor. Point out funds with weak
risk-adjusted returns, large drawdowns, heavy overlap between funds, and the tax
picture. Do not invent numbers that are not in the input. Do not give buy or
sell orders, only observations.`

// GeminiApi turns a run's computed analytics into a short narrative digest.
type GeminiApi struct {
	client *genai.Client
	cfg    *config.Config
}

func New(ctx context.Context, cfg *config.Config) (*GeminiApi, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.Gemini.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiApi{client: client, cfg: cfg}, nil
}

// Summarize asks the model for a narrative over the serialized analytics
// payload. The payload is whatever compact text the caller built from run
// results, the model never sees raw transactions.
func (a *GeminiApi) Summarize(ctx context.Context, payload string) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GeminiApi.Summarize"

	slog.Debug("Summarize start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("payloadLen", len(payload)))

	resp, err := a.client.Models.GenerateContent(
		ctx,
		a.cfg.Gemini.Model,
		genai.Text(payload),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		},
	)
	if err != nil {
		slog.Error("error while dialing GeminiApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		slog.Error("GeminiApi returned empty response", slog.String("rqID", rqID), slog.String("op", op))
		return "", fmt.Errorf("empty model response")
	}

	slog.Debug("Summarize complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("responseLen", len(text)))

	return text, nil
}
