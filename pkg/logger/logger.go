package logger

import (
	"go.uber.org/zap"
)

// New builds a JSON logger in production and a console logger everywhere else.
func New(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Must is New for main; a broken logger config is not recoverable.
func Must(production bool) *zap.Logger {
	log, err := New(production)
	if err != nil {
		panic(err)
	}
	return log
}
