package captcha

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sells-group/credit-crawler/internal/codec"
	"github.com/sells-group/credit-crawler/internal/transport"
)

const (
	testKey = "6875616E6779696E6875616E6779696E"
	testIV  = "sskjKingFree5138"
)

func testCodec(t *testing.T) *codec.Codec {
	t.Helper()
	c, err := codec.New(codec.Config{Key: testKey, IV: testIV})
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	return c
}

// fakeGetter serves canned response bodies in order, recording URLs.
type fakeGetter struct {
	responses []response
	urls      []string
}

type response struct {
	body []byte
	err  error
}

func (f *fakeGetter) Get(_ context.Context, rawURL string) ([]byte, error) {
	f.urls = append(f.urls, rawURL)
	if len(f.responses) == 0 {
		return nil, errors.New("fakeGetter: out of responses")
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.body, r.err
}

func challengeBody(t *testing.T, c *codec.Codec, code string, envCode int) []byte {
	t.Helper()
	data := c.Encrypt([]byte(fmt.Sprintf("%q", code)))
	return []byte(fmt.Sprintf(`{"code": %d, "data": %q}`, envCode, data))
}

func TestRefresh_Success(t *testing.T) {
	cdc := testCodec(t)
	getter := &fakeGetter{responses: []response{
		{body: challengeBody(t, cdc, "AB12", 0)},
	}}

	ctrl := New(getter, cdc, "http://base.test", 3)
	ctrl.nowMillis = func() int64 { return 1700000000123 }

	tok, err := ctrl.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Code != "AB12" {
		t.Errorf("code = %q", tok.Code)
	}
	if tok.IssuedAtMillis != 1700000000123 {
		t.Errorf("issuedAt = %d", tok.IssuedAtMillis)
	}
	if want := "http://base.test/getCreateCode?codeValue=1700000000123"; getter.urls[0] != want {
		t.Errorf("url = %q, want %q", getter.urls[0], want)
	}

	cur, ok := ctrl.Current()
	if !ok || cur != tok {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestRefresh_NoTokenBeforeFirstCall(t *testing.T) {
	ctrl := New(&fakeGetter{}, testCodec(t), "http://base.test", 1)
	if _, ok := ctrl.Current(); ok {
		t.Error("expected no token before first refresh")
	}
}

func TestRefresh_RetriesNonZeroEnvelopeCode(t *testing.T) {
	cdc := testCodec(t)
	getter := &fakeGetter{responses: []response{
		{body: challengeBody(t, cdc, "ignored", 1)},
		{body: challengeBody(t, cdc, "GOOD", 0)},
	}}

	ctrl := New(getter, cdc, "http://base.test", 3)
	tok, err := ctrl.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Code != "GOOD" {
		t.Errorf("code = %q", tok.Code)
	}
	if len(getter.urls) != 2 {
		t.Errorf("attempts = %d, want 2", len(getter.urls))
	}
}

func TestRefresh_FreshNoncePerAttempt(t *testing.T) {
	cdc := testCodec(t)
	getter := &fakeGetter{responses: []response{
		{err: errors.New("flaky")},
		{body: challengeBody(t, cdc, "OK", 0)},
	}}

	var clock int64
	ctrl := New(getter, cdc, "http://base.test", 3)
	ctrl.nowMillis = func() int64 { clock++; return clock }

	tok, err := ctrl.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The stored nonce must belong to the attempt that succeeded.
	if tok.IssuedAtMillis != 2 {
		t.Errorf("issuedAt = %d, want 2", tok.IssuedAtMillis)
	}
	if !strings.HasSuffix(getter.urls[0], "codeValue=1") || !strings.HasSuffix(getter.urls[1], "codeValue=2") {
		t.Errorf("urls = %v", getter.urls)
	}
}

func TestRefresh_ExhaustionIsNetworkError(t *testing.T) {
	getter := &fakeGetter{responses: []response{
		{err: errors.New("down")},
		{err: errors.New("down")},
		{err: errors.New("down")},
	}}

	ctrl := New(getter, testCodec(t), "http://base.test", 3)
	_, err := ctrl.Refresh(context.Background())

	var ne *transport.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *transport.NetworkError, got %v", err)
	}
	if len(getter.urls) != 3 {
		t.Errorf("attempts = %d, want 3", len(getter.urls))
	}
	if _, ok := ctrl.Current(); ok {
		t.Error("no token should be held after exhaustion")
	}
}

func TestRefresh_DecryptFailureCountsAsAttempt(t *testing.T) {
	getter := &fakeGetter{responses: []response{
		{body: []byte(`{"code": 0, "data": "AAAA"}`)}, // bad ciphertext size
		{body: []byte(`{"code": 0, "data": "AAAA"}`)},
	}}

	ctrl := New(getter, testCodec(t), "http://base.test", 2)
	_, err := ctrl.Refresh(context.Background())
	var ne *transport.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *transport.NetworkError, got %v", err)
	}
}

func TestRefresh_AgainstHTTPServer(t *testing.T) {
	cdc := testCodec(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getCreateCode" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("codeValue") == "" {
			t.Error("missing codeValue nonce")
		}
		_, _ = w.Write(challengeBody(t, cdc, "SRV1", 0))
	}))
	defer srv.Close()

	client := transport.New(transport.Options{MaxRetries: 1, RatePerSec: 1000})
	ctrl := New(client, cdc, srv.URL, 2)

	tok, err := ctrl.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Code != "SRV1" {
		t.Errorf("code = %q", tok.Code)
	}
}
