package update

import (
	"io"

	"github.com/rs/zerolog"
)

func fixtureLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
