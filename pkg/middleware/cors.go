package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4/middleware"
)

// AllowedOrigins is the restrictive list of origins permitted to call the API.
var AllowedOrigins = []string{
	"http://localhost:3000",    // Development dashboard
	"https://appgrove.dev",     // Production
	"https://www.appgrove.dev", // Production WWW
}

// AllowedMethods lists the HTTP methods the API serves cross-origin.
var AllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
}

// AllowedHeaders lists the request headers the API accepts cross-origin.
var AllowedHeaders = []string{
	"Origin",
	"Content-Type",
	"Accept",
	"Authorization",
}

// CORSConfig returns the CORS configuration used by the application.
// Centralised here so that both main.go and tests reference the same config.
func CORSConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     AllowedOrigins,
		AllowMethods:     AllowedMethods,
		AllowCredentials: true,
		AllowHeaders:     AllowedHeaders,
	}
}
