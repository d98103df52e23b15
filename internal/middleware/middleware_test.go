package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStack(t *testing.T, s *Sessions, h http.HandlerFunc) http.Handler {
	t.Helper()
	return HTMX(s.Middleware(CSRF(false)(h)))
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionCookieRoundTrip(t *testing.T) {
	s := NewSessions("0123456789abcdef0123456789abcdef", false, nil)
	var seen []string
	h := newStack(t, s, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, SessionFromContext(r.Context()).ID)
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	sess := cookieNamed(rec, sessionCookieName)
	require.NotNil(t, sess)
	require.True(t, sess.HttpOnly)
	require.NotNil(t, cookieNamed(rec, csrfCookieName))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sess)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Nil(t, cookieNamed(rec, sessionCookieName), "unchanged session is not rewritten")

	require.Len(t, seen, 2)
	require.Equal(t, seen[0], seen[1])
	require.Len(t, seen[0], 26)
}

func TestTamperedSessionStartsOver(t *testing.T) {
	s := NewSessions("0123456789abcdef0123456789abcdef", false, nil)
	other := NewSessions("fedcba9876543210fedcba9876543210", false, nil)
	var ids []string
	record := func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, SessionFromContext(r.Context()).ID)
	}

	rec := httptest.NewRecorder()
	newStack(t, other, record).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	forged := cookieNamed(rec, sessionCookieName)
	require.NotNil(t, forged)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(forged)
	rec = httptest.NewRecorder()
	newStack(t, s, record).ServeHTTP(rec, req)

	require.Len(t, ids, 2)
	require.NotEqual(t, ids[0], ids[1])
	require.NotNil(t, cookieNamed(rec, sessionCookieName))
}

func TestCSRFRequiresToken(t *testing.T) {
	s := NewSessions("0123456789abcdef0123456789abcdef", false, nil)
	h := newStack(t, s, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	sess := cookieNamed(rec, sessionCookieName)
	csrf := cookieNamed(rec, csrfCookieName)
	require.NotNil(t, sess)
	require.NotNil(t, csrf)

	post := func(header, field string) *httptest.ResponseRecorder {
		form := url.Values{}
		if field != "" {
			form.Set(csrfFormField, field)
		}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if header != "" {
			req.Header.Set(csrfHeader, header)
		}
		req.AddCookie(sess)
		req.AddCookie(csrf)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusForbidden, post("", "").Code)
	require.Equal(t, http.StatusForbidden, post("wrong", "").Code)
	require.Equal(t, http.StatusNoContent, post(csrf.Value, "").Code)
	require.Equal(t, http.StatusNoContent, post("", csrf.Value).Code)
}

func TestCSRFRejectionIsJSONForHTMX(t *testing.T) {
	s := NewSessions("", false, nil)
	h := newStack(t, s, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	require.JSONEq(t, `{"error":"invalid CSRF token"}`, rec.Body.String())
}

func TestRedirect(t *testing.T) {
	h := HTMX(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Redirect(w, r, "/payment")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/shipping", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/payment", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodPost, "/shipping", nil)
	req.Header.Set("HX-Request", "true")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/payment", rec.Header().Get("HX-Redirect"))
}

func TestAssetsETag(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.css"), []byte("body{}"), 0o600))
	h := Assets("/assets", dir)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	et := rec.Header().Get("ETag")
	require.NotEmpty(t, et)

	req := httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	req.Header.Set("If-None-Match", et)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
}
