package amfiApi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = "Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date\r\n" +
	"\r\n" +
	"Open Ended Schemes(Equity Scheme - Large Cap Fund)\r\n" +
	"\r\n" +
	"Axis Mutual Fund\r\n" +
	"\r\n" +
	"120465;INF846K01EW2;-;Axis Bluechip Fund - Direct Plan - Growth;58.97;30-Aug-2026\r\n" +
	"120466;INF846K01EX0;INF846K01EY8;Axis Bluechip Fund - Direct Plan - IDCW;22.41;30-Aug-2026\r\n" +
	"149999;INF846K01ZZ9;-;Axis Suspended Scheme;N.A.;30-Aug-2026\r\n"

func TestParseNavFeed(t *testing.T) {
	rows := ParseNavFeed(sampleFeed)
	require.Len(t, rows, 2)

	assert.Equal(t, "120465", rows[0].SchemeCode)
	assert.Equal(t, "Axis Bluechip Fund - Direct Plan - Growth", rows[0].SchemeName)
	assert.Equal(t, "58.97", rows[0].Nav)
	assert.Equal(t, "30-Aug-2026", rows[0].NavDate)

	assert.Equal(t, "120466", rows[1].SchemeCode)
}

func TestParseNavFeed_Empty(t *testing.T) {
	assert.Empty(t, ParseNavFeed(""))
	assert.Empty(t, ParseNavFeed("Axis Mutual Fund\nOpen Ended Schemes"))
}
