package core

// Logger is any service that can record application events.
// Error implementations may receive extra args (a user.User, a map of
// metadata) and are expected to pick out what they understand.
type Logger interface {
	Enable(enabled bool)
	Info(msg string, args ...interface{})
	Error(msg string, err error, args ...interface{})
}
