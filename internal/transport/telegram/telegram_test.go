package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	kit "docwatch/internal/transport"
	logx "docwatch/pkg/logx"
)

type upload struct {
	method   string
	fields   map[string]string
	fileName string
	data     []byte
}

type fakeAPI struct {
	mu      sync.Mutex
	calls   []upload
	failure string
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		up := upload{method: parts[len(parts)-1], fields: map[string]string{}}

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			require.NoError(t, r.ParseMultipartForm(10<<20))
			for k, v := range r.MultipartForm.Value {
				up.fields[k] = v[0]
			}
			if fh := r.MultipartForm.File["document"]; len(fh) > 0 {
				fd, err := fh[0].Open()
				require.NoError(t, err)
				up.data, _ = io.ReadAll(fd)
				fd.Close()
				up.fileName = fh[0].Filename
			}
		}

		f.mu.Lock()
		f.calls = append(f.calls, up)
		n := len(f.calls)
		failure := f.failure
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if failure != "" {
			fmt.Fprintf(w, `{"ok":false,"error_code":400,"description":%q}`, failure)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":42,"type":"private"}}}`, 100+n)
	}
}

func newTestAdapter(t *testing.T, api *fakeAPI) *Adapter {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", APIURL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	return a
}

func TestSendDocumentSingleUpload(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	a := newTestAdapter(t, api)

	ref, err := a.SendDocument(context.Background(), kit.ChatTarget{ChatID: 42, ThreadID: 7}, kit.Document{
		FileName: "schedule.pdf",
		MIME:     "application/pdf",
		Caption:  "updated",
		Data:     []byte("%PDF-1.4 body"),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 101, ref.MessageID)

	require.Len(t, api.calls, 1)
	call := api.calls[0]
	require.Equal(t, "sendDocument", call.method)
	require.Equal(t, "42", call.fields["chat_id"])
	require.Equal(t, "updated", call.fields["caption"])
	require.Equal(t, "7", call.fields["message_thread_id"])
	require.Equal(t, "schedule.pdf", call.fileName)
	require.Equal(t, []byte("%PDF-1.4 body"), call.data)
}

func TestSendDocumentReportsAPIError(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{failure: "Bad Request: chat not found"}
	a := newTestAdapter(t, api)

	_, err := a.SendDocument(context.Background(), kit.ChatTarget{ChatID: 1}, kit.Document{FileName: "x.pdf", Data: []byte("x")}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat not found")
	require.Len(t, api.calls, 1, "no retry")
}

func TestSendDocumentRejectsEmpty(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	a := newTestAdapter(t, api)
	_, err := a.SendDocument(context.Background(), kit.ChatTarget{ChatID: 1}, kit.Document{FileName: "x.pdf"}, nil)
	require.Error(t, err)
	require.Empty(t, api.calls)
}

func TestSendDocumentHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	a := newTestAdapter(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.SendDocument(ctx, kit.ChatTarget{ChatID: 1}, kit.Document{FileName: "x.pdf", Data: []byte("x")}, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, api.calls)
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Token: "  "}, logx.Nop())
	require.Error(t, err)
}

func TestSplitText(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"short"}, splitText("short", 10, ""))

	long := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	require.Equal(t, []string{"aaaaaa", "bbbbbb"}, splitText(long, 10, ""))

	html := "abcdef<b>bold</b>"
	chunks := splitText(html, 8, "HTML")
	require.Equal(t, "abcdef", chunks[0])
	require.Equal(t, html, strings.Join(chunks, ""))
}
