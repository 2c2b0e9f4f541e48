package signature

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize_StripsWhitespaceFromBodyAndSecret(t *testing.T) {
	body := []byte(`{"appid":"A", "rank_key":"daily"}`)
	canon := Canonicalize(body, "s e c r e t")
	require.NotContains(t, canon, " ")
	require.NotContains(t, canon, "\n")
}

func TestVerify_AcceptsMatchingSignature(t *testing.T) {
	body := []byte(`{"appid":"A","openid":"u1"}`)
	secret := "tenant-secret"
	sig := Sign(Canonicalize(body, secret))
	require.True(t, Verify(body, secret, sig))
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	body := []byte(`{"appid":"A","openid":"u1"}`)
	sig := Sign(Canonicalize(body, "right-secret"))
	require.False(t, Verify(body, "wrong-secret", sig))
}

func TestSign_Produces32CharLowercaseHex(t *testing.T) {
	sig := Sign(Canonicalize([]byte("x"), "y"))
	require.Len(t, sig, 32)
	require.Regexp(t, "^[0-9a-f]{32}$", sig)
}

// Middleware passes every request through regardless of headers or
// signature validity.
func TestMiddleware_PassesRequestsThroughUnconditionally(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	lookup := func(appID string) (string, bool) { return "", false }
	handler := Middleware(lookup, next)

	req := httptest.NewRequest(http.MethodPost, "/rank/update_score", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}
