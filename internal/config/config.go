package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "time"     // time provides duration parsing for TTLs and intervals

    "github.com/iliyamo/event-ticketing/internal/gateway" // gateway holds adapter configuration types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for TTLs
// and sweep intervals.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    DBUser         string        // database username
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    JWTSecret      string        // secret used to verify JWTs
    Currency       string        // currency code stamped on bookings
    HoldTTL        time.Duration // how long seat holds protect seats while payment is pending
    ReaperInterval time.Duration // how often the expiry sweep runs
    Esewa          gateway.EsewaConfig  // redirect-form gateway settings
    Khalti         gateway.KhaltiConfig // bearer/REST gateway settings
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    retry := gateway.RetryPolicy{
        Attempts: envInt("GATEWAY_RETRY_ATTEMPTS", 3),       // bounded attempts for transient gateway failures
        Delay:    envDur("GATEWAY_RETRY_DELAY", 2*time.Second), // fixed delay between attempts
    }
    return Config{
        Env:            must("APP_ENV"),             // environment (dev/test/prod)
        Port:           must("APP_PORT"),            // port to bind the HTTP server
        DBUser:         must("DB_USER"),             // database user
        DBPass:         os.Getenv("DB_PASS"),        // database password (empty allowed)
        DBHost:         must("DB_HOST"),             // database host
        DBPort:         must("DB_PORT"),             // database port
        DBName:         must("DB_NAME"),             // database name
        JWTSecret:      must("JWT_SECRET"),          // secret used for verifying JWTs
        Currency:       envStrDefault("BOOKING_CURRENCY", "NPR"),     // booking currency code
        HoldTTL:        envDur("SEAT_HOLD_TTL", 5*time.Minute),       // seat hold lifetime
        ReaperInterval: envDur("REAPER_INTERVAL", time.Minute),       // expiry sweep cadence
        Esewa: gateway.EsewaConfig{
            ProductCode: must("ESEWA_PRODUCT_CODE"),  // merchant code signed into every form
            SecretKey:   must("ESEWA_SECRET_KEY"),    // HMAC secret shared with eSewa
            PaymentURL:  must("ESEWA_PAYMENT_URL"),   // form POST target
            StatusURL:   must("ESEWA_STATUS_URL"),    // transaction status endpoint
            SuccessURL:  must("ESEWA_SUCCESS_URL"),   // redirect target on success
            FailureURL:  must("ESEWA_FAILURE_URL"),   // redirect target on failure
            Retry:       retry,
        },
        Khalti: gateway.KhaltiConfig{
            SecretKey:  must("KHALTI_SECRET_KEY"),   // bearer key for the Authorization header
            BaseURL:    must("KHALTI_BASE_URL"),     // API base URL
            ReturnURL:  must("KHALTI_RETURN_URL"),   // buyer redirect after paying
            WebsiteURL: must("KHALTI_WEBSITE_URL"),  // merchant site URL
            Retry:      retry,
        },
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// envStrDefault returns the variable's value or the default when unset.
func envStrDefault(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}
