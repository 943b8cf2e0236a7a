package utils

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger picks the zap preset from the ENV variable so production
// output stays JSON while dev keeps the console encoder.
func NewLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
