package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyNotifier struct {
	failures int
	calls    int
	sent     []string
}

func (f *flakyNotifier) Send(_ context.Context, text string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("telegram: bad gateway")
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestRetryingRecovers(t *testing.T) {
	inner := &flakyNotifier{failures: 2}
	r := WithRetry(inner, 3, time.Millisecond, nil)

	require.NoError(t, r.Send(context.Background(), "hello"))
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []string{"hello"}, inner.sent)
}

func TestRetryingGivesUp(t *testing.T) {
	inner := &flakyNotifier{failures: 10}
	r := WithRetry(inner, 3, time.Millisecond, nil)

	err := r.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")
	assert.Equal(t, 3, inner.calls)
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Send(context.Background(), "*hi*"))
}

func TestTelegramSend(t *testing.T) {
	var path, text, mode, chat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			_ = r.ParseMultipartForm(1 << 20)
		} else {
			_ = r.ParseForm()
		}
		text, mode, chat = r.FormValue("text"), r.FormValue("parse_mode"), r.FormValue("chat_id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram("123:abc", "42", bot.WithServerURL(srv.URL))
	require.NoError(t, err)
	require.NoError(t, tg.Send(context.Background(), "*hello*"))

	assert.True(t, strings.HasSuffix(path, "/sendMessage"))
	assert.Equal(t, "*hello*", text)
	assert.Equal(t, "Markdown", mode)
	assert.Equal(t, "42", chat)

	_, err = NewTelegram("", "42")
	assert.Error(t, err)
}
