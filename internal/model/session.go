package model

type SessionState int

const (
	DefaultState SessionState = iota
	ExpectingTaxYear
)

// Session is the per-chat Telegram dialog state.
type Session struct {
	State SessionState
}
