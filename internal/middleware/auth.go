package middleware

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"elearning-backend/internal/apperror"
	"elearning-backend/internal/model"
	"elearning-backend/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	accessTokenCookie = "access_token"
	userContextKey    = "user"
)

var (
	errLoginRequired = apperror.New(apperror.KindUnauthorized, "please login to access this resource")
	errInvalidToken  = apperror.New(apperror.KindUnauthorized, "access token is not valid")
)

// Authenticate resolves the caller from the access token cookie, or from a
// bearer token, and stores the user on the context.
func Authenticate(secret string, userService service.UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := accessToken(c)
			if token == "" {
				return errLoginRequired
			}

			userID, err := parseAccessToken(token, secret)
			if err != nil {
				return apperror.Wrap(apperror.KindUnauthorized, errInvalidToken.Message, err)
			}

			user, err := userService.GetUser(c.Request().Context(), userID)
			if err != nil {
				if apperror.KindOf(err) == apperror.KindNotFound {
					return errLoginRequired
				}
				return err
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return errLoginRequired
			}
			if !slices.Contains(roles, user.Role) {
				return apperror.New(apperror.KindForbidden,
					fmt.Sprintf("role: %s is not allowed to access this resource", user.Role))
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(userContextKey).(*model.User)
	return user
}

func accessToken(c echo.Context) string {
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func parseAccessToken(token, secret string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	userID, _ := claims["id"].(string)
	if userID == "" {
		return "", errors.New("token has no user id")
	}
	return userID, nil
}
