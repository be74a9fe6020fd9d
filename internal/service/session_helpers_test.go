package service

import (
	"net/http"

	domainauth "github.com/target/identity-session/internal/domain/auth"
)

func refreshCookie(value string) *http.Cookie {
	return &http.Cookie{Name: domainauth.RefreshTokenCookie, Value: value, Path: "/", MaxAge: domainauth.CookieMaxAge}
}

func accessCookie(value string) *http.Cookie {
	return &http.Cookie{Name: domainauth.AccessTokenCookie, Value: value, Path: "/", MaxAge: domainauth.CookieMaxAge}
}

func roleCookie(value string) *http.Cookie {
	return &http.Cookie{Name: domainauth.RoleCookie, Value: value, Path: "/", MaxAge: domainauth.CookieMaxAge}
}
