// Package logger wraps a zap sugared logger with key/value helpers.
package logger
