// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns such as the
// callable request envelope, bearer token verification, request logging,
// CORS, rate limiting and panic recovery.
package middleware
