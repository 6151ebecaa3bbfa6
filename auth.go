package alchemy

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userPrefix = "admin_"

// UserID derives the user id owned by a passcode. The id is an HMAC of the
// passcode keyed by the session secret, so it never carries the passcode and
// changes if SESSION_SECRET is rotated.
func UserID(sessionSecret, otp string) string {
	mac := hmac.New(sha256.New, deriveKey(sessionSecret, "user-id"))
	mac.Write([]byte(strings.TrimSpace(otp)))
	return userPrefix + hex.EncodeToString(mac.Sum(nil)[:12])
}

// deriveKey expands the session secret into a 32-byte key for one purpose.
func deriveKey(secret, purpose string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("alchemy/" + purpose))
	return mac.Sum(nil)
}

// userForOTP returns the user id owned by a valid passcode. Every configured
// passcode is compared so timing does not reveal which one matched.
func (a *App) userForOTP(otp string) (string, bool) {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return "", false
	}
	match := ""
	for _, want := range a.Config.AdminOTPs {
		if subtle.ConstantTimeCompare([]byte(otp), []byte(want)) == 1 {
			match = want
		}
	}
	if match == "" {
		return "", false
	}
	return UserID(a.Config.SessionSecret, match), true
}

func (a *App) handleHome(c echo.Context) error {
	if SessionUser(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/dashboard/")
	}
	return c.Redirect(http.StatusSeeOther, "/login/")
}

func (a *App) handleLoginPage(c echo.Context) error {
	if SessionUser(c) != "" {
		return c.Redirect(http.StatusSeeOther, "/dashboard/")
	}
	return Render(c, a.Views.Login(false, CsrfToken(c)))
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	userID, ok := a.userForOTP(c.FormValue("otp"))
	if !ok {
		a.loginLimiter.Record(ip)
		return RenderStatus(c, http.StatusUnauthorized, a.Views.Login(true, CsrfToken(c)))
	}
	if err := setUserSession(c, userID); err != nil {
		return err
	}
	c.Logger().Infof("login for %s", userID)
	return c.Redirect(http.StatusSeeOther, "/dashboard/")
}

func handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login/")
}
