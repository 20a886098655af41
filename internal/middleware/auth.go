package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"frames/internal/lib/jwt"
	"frames/internal/lib/logger/sl"
	"frames/internal/transport/http/dto/response"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	UserIDKey   = "user_id"
	sessionName = "session"
)

// Auth пропускает запрос только с известным пользователем. Пользователь
// определяется по Bearer-токену внешнего провайдера или по сессии.
// Идентификатор кладется в контекст под ключом UserIDKey.
func Auth(log *slog.Logger, secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			const op = "middleware.Auth"

			if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
				}

				userID, err := jwt.ParseSubject(strings.TrimSpace(token), secret)
				if err != nil {
					log.Warn("invalid bearer token", slog.String("op", op), sl.Err(err))
					return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
				}

				rememberUser(log, c, userID)
				c.Set(UserIDKey, userID)

				return next(c)
			}

			sess, err := session.Get(sessionName, c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationRequired)
			}

			userID, ok := sess.Values[UserIDKey].(string)
			if !ok || userID == "" {
				return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationRequired)
			}

			c.Set(UserIDKey, userID)

			return next(c)
		}
	}
}

// UserID возвращает пользователя, установленного Auth.
func UserID(c echo.Context) (string, bool) {
	userID, ok := c.Get(UserIDKey).(string)
	return userID, ok && userID != ""
}

func rememberUser(log *slog.Logger, c echo.Context, userID string) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return
	}

	if current, _ := sess.Values[UserIDKey].(string); current == userID {
		return
	}

	sess.Values[UserIDKey] = userID
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		log.Warn("failed to save session", sl.Err(err))
	}
}
