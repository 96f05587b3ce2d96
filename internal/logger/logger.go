package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Development mode gets the human-readable
// console encoder, anything else gets production JSON.
func New(env string) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if env == "development" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
