// Package logging builds the process *slog.Logger.
//
// New wraps slog's JSON or text handler so records logged with a context
// (InfoContext and friends) carry request_id and use_case_id automatically:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
// HTTP middleware stores a request-scoped logger on the context. Handlers
// fetch it with FromContext, which attaches the IDs itself, so use the
// plain Info/Error methods on it rather than the *Context variants:
//
//	ctx = logging.WithLogger(logging.WithRequestID(ctx, "req-123"), logger)
//	logging.FromContext(ctx).Info("evaluated", "tier", "T3")
//
// # Redaction
//
// With RedactPII, email addresses in string attributes are masked
// ("jane@bank.com" becomes "j***@bank.com"). RedactKeys names attributes
// whose values are always replaced by [REDACTED].
package logging
