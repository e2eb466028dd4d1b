package service

import "errors"

var (
	ErrNotFound    = errors.New("error not found")
	ErrEmptyLedger = errors.New("transaction ledger is empty")
)
