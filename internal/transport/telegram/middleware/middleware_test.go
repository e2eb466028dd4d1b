package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeTeleCtx struct {
	tele.Context
	chat *tele.Chat
}

func (f *fakeTeleCtx) Chat() *tele.Chat { return f.chat }

func TestAllowedChat(t *testing.T) {
	mw := AllowedChat(42)

	tests := []struct {
		name     string
		chat     *tele.Chat
		wantNext bool
	}{
		{name: "configured chat passes", chat: &tele.Chat{ID: 42}, wantNext: true},
		{name: "foreign chat dropped", chat: &tele.Chat{ID: 7}, wantNext: false},
		{name: "chatless update dropped", chat: nil, wantNext: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			handler := mw(func(c tele.Context) error {
				nextCalled = true
				return nil
			})

			require.NotPanics(t, func() {
				err := handler(&fakeTeleCtx{chat: tt.chat})
				assert.NoError(t, err)
			})
			assert.Equal(t, tt.wantNext, nextCalled)
		})
	}
}
