package middleware

// identity.go defines helper functions shared across middleware files. It
// provides a userID extraction function that reads the subject claim placed
// into the Echo context by JWTAuth. When no user is authenticated, "anon"
// is returned so callers can still build a usable key.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID extracts the authenticated user's identifier from the context.
// JWTAuth stores the raw "sub" claim under "user_id", so the value may
// arrive as a string or as a JSON number depending on how the token was
// minted.
func userID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case string:
        if v != "" {
            return v
        }
    case float64:
        return strconv.FormatInt(int64(v), 10)
    case int64:
        return strconv.FormatInt(v, 10)
    case uint64:
        return strconv.FormatUint(v, 10)
    case int:
        return strconv.Itoa(v)
    }
    return "anon"
}
