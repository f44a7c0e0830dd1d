// Package middleware содержит HTTP middleware для сервиса BookBazar.
package middleware

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const sessionKey contextKey = "session"

const (
	sessionCookieName = "bookbazar_session"
	flashCookieName   = "bookbazar_flash"
	flashCookieTTL    = 5 * time.Minute

	issuer          = "bookbazar"
	audienceSession = "session"
	audienceFlash   = "flash"
)

// Категории flash-сообщений.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
	FlashWarning = "warning"
)

// Flash — одноразовое сообщение, показываемое на следующей отрисованной странице.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type cookieClaims struct {
	Flashes []Flash `json:"flashes,omitempty"`
	jwt.RegisteredClaims
}

type state struct {
	username string
	incoming []Flash
	pending  []Flash
}

// SessionManager хранит сессию пользователя и flash-сообщения в подписанных cookie.
type SessionManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionManager создаёт менеджер сессий. При пустом секрете генерируется
// случайный ключ, и сессии не переживают перезапуск процесса.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &SessionManager{
		secretKey: key,
		ttl:       ttl,
		now:       time.Now,
	}
}

// LoadSession читает cookie сессии и flash-сообщений и сохраняет состояние в контексте запроса.
// Недействительные или просроченные cookie считаются отсутствующими.
func (m *SessionManager) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &state{}

		if c, err := r.Cookie(sessionCookieName); err == nil {
			if claims, err := m.parse(c.Value, audienceSession); err == nil {
				st.username = claims.Subject
			}
		}
		if c, err := r.Cookie(flashCookieName); err == nil {
			if claims, err := m.parse(c.Value, audienceFlash); err == nil {
				st.incoming = claims.Flashes
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, st)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func stateFrom(ctx context.Context) *state {
	st, _ := ctx.Value(sessionKey).(*state)
	return st
}

// Username возвращает имя аутентифицированного пользователя или пустую строку.
func Username(ctx context.Context) string {
	if st := stateFrom(ctx); st != nil {
		return st.username
	}
	return ""
}

// SetUser устанавливает cookie сессии для пользователя.
func (m *SessionManager) SetUser(w http.ResponseWriter, r *http.Request, username string) error {
	now := m.now()
	value, err := m.sign(&cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			Audience:  jwt.ClaimStrings{audienceSession},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if st := stateFrom(r.Context()); st != nil {
		st.username = username
	}
	return nil
}

// Clear удаляет сессию пользователя.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) {
	expireCookie(w, sessionCookieName)
	if st := stateFrom(r.Context()); st != nil {
		st.username = ""
	}
}

// AddFlash добавляет flash-сообщение. Сообщение сохраняется в cookie вызовом Save.
func AddFlash(r *http.Request, category, message string) {
	if st := stateFrom(r.Context()); st != nil {
		st.pending = append(st.pending, Flash{Category: category, Message: message})
	}
}

// Save записывает добавленные flash-сообщения в cookie перед перенаправлением.
// Непоказанные сообщения текущего запроса сохраняются вместе с новыми.
func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request) error {
	st := stateFrom(r.Context())
	if st == nil || len(st.pending) == 0 {
		return nil
	}

	flashes := append(append([]Flash(nil), st.incoming...), st.pending...)
	now := m.now()
	value, err := m.sign(&cookieClaims{
		Flashes: flashes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audienceFlash},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashCookieTTL)),
		},
	})
	if err != nil {
		return fmt.Errorf("sign flash: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(flashCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Flashes возвращает сообщения для показа, не помечая их показанными.
func Flashes(ctx context.Context) []Flash {
	st := stateFrom(ctx)
	if st == nil {
		return nil
	}
	return append(append([]Flash(nil), st.incoming...), st.pending...)
}

// PopFlashes возвращает все сообщения для показа и удаляет cookie flash-сообщений.
func (m *SessionManager) PopFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	st := stateFrom(r.Context())
	if st == nil {
		return nil
	}

	flashes := Flashes(r.Context())
	if len(st.incoming) > 0 {
		expireCookie(w, flashCookieName)
	}
	st.incoming = nil
	st.pending = nil
	return flashes
}

// RequireUser перенаправляет анонимного пользователя на страницу входа
// с flash-сообщением message.
func (m *SessionManager) RequireUser(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Username(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}
			if message != "" {
				AddFlash(r, FlashError, message)
				_ = m.Save(w, r)
			}
			http.Redirect(w, r, "/login", http.StatusFound)
		})
	}
}

func (m *SessionManager) sign(claims *cookieClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

func (m *SessionManager) parse(value, audience string) (*cookieClaims, error) {
	claims := &cookieClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
