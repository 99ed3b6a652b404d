package common

// AuthorizationHeaderName carries the bearer token of the current session on
// requests to the remote authority.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "
