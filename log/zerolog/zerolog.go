package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/MeteoSwiss/weathermart"
)

type ZerologLogger struct{ L zerolog.Logger }

var _ weathermart.Logger = ZerologLogger{}

func (z ZerologLogger) Debug(msg string, f weathermart.Fields) {
	z.L.Debug().Fields(map[string]interface{}(f)).Msg(msg)
}
func (z ZerologLogger) Info(msg string, f weathermart.Fields) {
	z.L.Info().Fields(map[string]interface{}(f)).Msg(msg)
}
func (z ZerologLogger) Warn(msg string, f weathermart.Fields) {
	z.L.Warn().Fields(map[string]interface{}(f)).Msg(msg)
}
func (z ZerologLogger) Error(msg string, f weathermart.Fields) {
	z.L.Error().Fields(map[string]interface{}(f)).Msg(msg)
}
