// Package logger builds the service's slog loggers.
//
// Every logger writes JSON (or text) to stdout through a LogHandlerDecorator,
// which appends attributes pulled from the context by ContextExtractor
// functions. Request-scoped values such as the request id or the sending
// identity are attached once with WithAttrs and show up on every record
// logged with that context:
//
//	log := logger.New(cfg, logger.ContextAttrs())
//	ctx = logger.WithAttrs(ctx, slog.String("identity", "ops@example.com"))
//	log.InfoContext(ctx, "campaign accepted", slog.Int("recipients", 3))
//
// Attributes named recipient, email or to are passed through RedactEmail, so
// recipient addresses never reach the log output in clear text.
//
// NewWithSentry additionally forwards warnings and errors to Sentry when a DSN
// is configured, and falls back to stdout only otherwise. NewNope discards
// everything and is meant for tests.
package logger
