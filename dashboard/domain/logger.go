package domain

// Logger defines the contract for logging operations with different severity levels.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
