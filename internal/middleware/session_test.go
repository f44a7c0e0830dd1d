package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(t *testing.T, res *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionManager_SetUserRoundTrip(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	login := m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.SetUser(w, r, "alice"))
		assert.Equal(t, "alice", Username(r.Context()))
	}))

	w := httptest.NewRecorder()
	login.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookie := findCookie(t, w.Result(), sessionCookieName)
	require.NotNil(t, cookie, "session cookie must be set")
	assert.True(t, cookie.HttpOnly)

	var got string
	next := m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Username(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/books", nil)
	r.AddCookie(cookie)
	next.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "alice", got)
}

func TestSessionManager_RejectsForeignOrExpiredCookies(t *testing.T) {
	issuerManager := NewSessionManager("test-secret", time.Hour)
	w := httptest.NewRecorder()
	issuerManager.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, issuerManager.SetUser(w, r, "alice"))
	})).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	valid := findCookie(t, w.Result(), sessionCookieName)
	require.NotNil(t, valid)

	expired := NewSessionManager("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name    string
		manager *SessionManager
		cookie  *http.Cookie
	}{
		{
			name:    "other secret",
			manager: NewSessionManager("another-secret", time.Hour),
			cookie:  valid,
		},
		{
			name:    "expired",
			manager: expired,
			cookie:  valid,
		},
		{
			name:    "garbage",
			manager: issuerManager,
			cookie:  &http.Cookie{Name: sessionCookieName, Value: "not-a-token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := tt.manager.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = Username(r.Context())
			}))
			r := httptest.NewRequest(http.MethodGet, "/books", nil)
			r.AddCookie(tt.cookie)
			h.ServeHTTP(httptest.NewRecorder(), r)

			assert.Empty(t, got)
		})
	}
}

func TestSessionManager_FlashCookieIsNotASession(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	w := httptest.NewRecorder()
	m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddFlash(r, FlashInfo, "hello")
		require.NoError(t, m.Save(w, r))
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	flash := findCookie(t, w.Result(), flashCookieName)
	require.NotNil(t, flash)

	var got string
	r := httptest.NewRequest(http.MethodGet, "/books", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: flash.Value})
	m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = Username(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), r)

	assert.Empty(t, got)
}

func TestSessionManager_FlashLifecycle(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	// Перенаправление сохраняет сообщение в cookie.
	w := httptest.NewRecorder()
	m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddFlash(r, FlashSuccess, "Registration successful! Please login.")
		require.NoError(t, m.Save(w, r))
		http.Redirect(w, r, "/login", http.StatusFound)
	})).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", nil))

	flash := findCookie(t, w.Result(), flashCookieName)
	require.NotNil(t, flash)

	// Следующая отрисованная страница показывает сообщение и удаляет cookie.
	var shown []Flash
	w = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/login", nil)
	r.AddCookie(flash)
	m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shown = m.PopFlashes(w, r)
	})).ServeHTTP(w, r)

	assert.Equal(t, []Flash{{Category: FlashSuccess, Message: "Registration successful! Please login."}}, shown)
	cleared := findCookie(t, w.Result(), flashCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestSessionManager_PendingFlashRenderedWithoutCookie(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	var shown []Flash
	w := httptest.NewRecorder()
	m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddFlash(r, FlashError, "Passwords do not match!")
		shown = m.PopFlashes(w, r)
	})).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", nil))

	assert.Equal(t, []Flash{{Category: FlashError, Message: "Passwords do not match!"}}, shown)
	assert.Nil(t, findCookie(t, w.Result(), flashCookieName))
}

func TestFlashes_DoesNotConsume(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	w := httptest.NewRecorder()
	m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddFlash(r, FlashInfo, "hello")
		assert.Equal(t, []Flash{{Category: FlashInfo, Message: "hello"}}, Flashes(r.Context()))
		assert.Len(t, m.PopFlashes(w, r), 1)
		assert.Empty(t, Flashes(r.Context()))
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestSessionManager_Clear(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	w := httptest.NewRecorder()
	m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.SetUser(w, r, "alice"))
		m.Clear(w, r)
		assert.Empty(t, Username(r.Context()))
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/logout", nil))

	var expired bool
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			expired = true
		}
	}
	assert.True(t, expired)
}

func TestRequireUser(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	t.Run("anonymous is redirected with flash", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("next handler should not be called")
		})

		w := httptest.NewRecorder()
		h := m.LoadSession(m.RequireUser("Please login to view your cart.")(next))
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

		res := w.Result()
		assert.Equal(t, http.StatusFound, res.StatusCode)
		assert.Equal(t, "/login", res.Header.Get("Location"))
		assert.NotNil(t, findCookie(t, res, flashCookieName))
	})

	t.Run("authenticated passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.LoadSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, m.SetUser(w, r, "alice"))
		})).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		cookie := findCookie(t, w.Result(), sessionCookieName)
		require.NotNil(t, cookie)

		nextCalled := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nextCalled = true
		})
		r := httptest.NewRequest(http.MethodGet, "/cart", nil)
		r.AddCookie(cookie)
		m.LoadSession(m.RequireUser("Please login to view your cart.")(next)).ServeHTTP(httptest.NewRecorder(), r)

		assert.True(t, nextCalled)
	})
}
