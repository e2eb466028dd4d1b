package mfApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/internal/externalApi"
	"github.com/shiveeg1/fund-agent/internal/model/mfapiModel"
	"github.com/shiveeg1/fund-agent/utils"
)

// MfApi serves per-scheme metadata and NAV history from api.mfapi.in.
type MfApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *MfApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.Mfapi.Url)
	return &MfApi{client: client}
}

// GetScheme returns metadata and full NAV history for one scheme code.
func (a *MfApi) GetScheme(ctx context.Context, schemeCode string) (mfapiModel.SchemeResponse, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MfApi.GetScheme"

	slog.Debug("GetScheme start", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", schemeCode))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/mf/" + schemeCode)
	if err != nil {
		slog.Error("error while dialing MfApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.SchemeResponse{}, err
	}

	if resp.StatusCode() == 404 {
		return mfapiModel.SchemeResponse{}, externalApi.ErrNotFound
	}

	scheme := mfapiModel.SchemeResponse{}
	if err := json.Unmarshal(resp.Body(), &scheme); err != nil {
		slog.Error("can't unmarshal response into mfapiModel.SchemeResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.SchemeResponse{}, err
	}

	if scheme.Status != "" && scheme.Status != "SUCCESS" {
		slog.Error("MfApi returned non-success status", slog.String("rqID", rqID), slog.String("op", op), slog.String("status", scheme.Status))
		return mfapiModel.SchemeResponse{}, fmt.Errorf("mfapi status %s for scheme %s", scheme.Status, schemeCode)
	}

	if len(scheme.Data) == 0 {
		return mfapiModel.SchemeResponse{}, externalApi.ErrNotFound
	}

	slog.Debug("GetScheme complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("navPoints", len(scheme.Data)))

	return scheme, nil
}

// GetComposition returns the latest portfolio holdings disclosure for one
// scheme. Not every scheme discloses composition, 404 maps to ErrNotFound.
func (a *MfApi) GetComposition(ctx context.Context, schemeCode string) (mfapiModel.CompositionResponse, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MfApi.GetComposition"

	slog.Debug("GetComposition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", schemeCode))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/mf/" + schemeCode + "/holdings")
	if err != nil {
		slog.Error("error while dialing MfApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.CompositionResponse{}, err
	}

	if resp.StatusCode() == 404 {
		return mfapiModel.CompositionResponse{}, externalApi.ErrNotFound
	}

	comp := mfapiModel.CompositionResponse{}
	if err := json.Unmarshal(resp.Body(), &comp); err != nil {
		slog.Error("can't unmarshal response into mfapiModel.CompositionResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.CompositionResponse{}, err
	}

	if len(comp.Holdings) == 0 {
		return mfapiModel.CompositionResponse{}, externalApi.ErrNotFound
	}

	slog.Debug("GetComposition complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holdings", len(comp.Holdings)))

	return comp, nil
}

// GetTER returns the latest total expense ratio disclosure for one scheme.
func (a *MfApi) GetTER(ctx context.Context, schemeCode string) (mfapiModel.TERResponse, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MfApi.GetTER"

	slog.Debug("GetTER start", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", schemeCode))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/mf/" + schemeCode + "/ter")
	if err != nil {
		slog.Error("error while dialing MfApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.TERResponse{}, err
	}

	if resp.StatusCode() == 404 {
		return mfapiModel.TERResponse{}, externalApi.ErrNotFound
	}

	ter := mfapiModel.TERResponse{}
	if err := json.Unmarshal(resp.Body(), &ter); err != nil {
		slog.Error("can't unmarshal response into mfapiModel.TERResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.TERResponse{}, err
	}

	if ter.TerPct == 0 {
		return mfapiModel.TERResponse{}, externalApi.ErrNotFound
	}

	slog.Debug("GetTER complete", slog.String("rqID", rqID), slog.String("op", op))

	return ter, nil
}

// GetPeers returns category benchmark data for one scheme.
func (a *MfApi) GetPeers(ctx context.Context, schemeCode string) (mfapiModel.PeerResponse, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MfApi.GetPeers"

	slog.Debug("GetPeers start", slog.String("rqID", rqID), slog.String("op", op), slog.String("schemeCode", schemeCode))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/mf/" + schemeCode + "/peers")
	if err != nil {
		slog.Error("error while dialing MfApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.PeerResponse{}, err
	}

	if resp.StatusCode() == 404 {
		return mfapiModel.PeerResponse{}, externalApi.ErrNotFound
	}

	peers := mfapiModel.PeerResponse{}
	if err := json.Unmarshal(resp.Body(), &peers); err != nil {
		slog.Error("can't unmarshal response into mfapiModel.PeerResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mfapiModel.PeerResponse{}, err
	}

	if peers.Category == "" {
		return mfapiModel.PeerResponse{}, externalApi.ErrNotFound
	}

	slog.Debug("GetPeers complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("category", peers.Category))

	return peers, nil
}
