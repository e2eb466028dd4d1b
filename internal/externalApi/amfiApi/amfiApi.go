package amfiApi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shiveeg1/fund-agent/config"
	"github.com/shiveeg1/fund-agent/internal/model/amfiModel"
	"github.com/shiveeg1/fund-agent/utils"
)

// AmfiApi pulls the daily NAVAll.txt feed published by AMFI. The feed is a
// semicolon separated dump of every scheme:
// code;ISIN growth;ISIN reinvestment;name;NAV;date
// interleaved with AMC and category header lines that carry no semicolons.
type AmfiApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *AmfiApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.Amfi.Url)
	return &AmfiApi{client: client}
}

func (a *AmfiApi) GetAllNavs(ctx context.Context) ([]amfiModel.NavRow, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AmfiApi.GetAllNavs"

	slog.Debug("GetAllNavs start", slog.String("rqID", rqID), slog.String("op", op))

	resp, err := a.client.R().
		SetContext(ctx).
		Get("/spages/NAVAll.txt")
	if err != nil {
		slog.Error("error while dialing AmfiApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if resp.StatusCode() != 200 {
		slog.Error("unexpected status from AmfiApi", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("amfi responded with status %d", resp.StatusCode())
	}

	rows := ParseNavFeed(string(resp.Body()))
	if len(rows) == 0 {
		slog.Error("AmfiApi feed yielded no rows", slog.String("rqID", rqID), slog.String("op", op))
		return nil, fmt.Errorf("empty NAV feed")
	}

	slog.Debug("GetAllNavs complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("rows", len(rows)))

	return rows, nil
}

// ParseNavFeed extracts scheme rows from the raw NAVAll.txt body. Header and
// section lines are skipped, as are rows with a non-numeric NAV like "N.A.".
func ParseNavFeed(body string) []amfiModel.NavRow {
	var rows []amfiModel.NavRow
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		parts := strings.Split(line, ";")
		if len(parts) != 6 {
			continue
		}

		code := strings.TrimSpace(parts[0])
		if code == "" || code == "Scheme Code" {
			continue
		}

		nav := strings.TrimSpace(parts[4])
		if !isNumeric(nav) {
			continue
		}

		rows = append(rows, amfiModel.NavRow{
			SchemeCode: code,
			SchemeName: strings.TrimSpace(parts[3]),
			Nav:        nav,
			NavDate:    strings.TrimSpace(parts[5]),
		})
	}
	return rows
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		if r == '.' {
			dots++
			if dots > 1 {
				return false
			}
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
