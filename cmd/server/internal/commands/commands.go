package commands

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/townhall/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
}

// setupLogger builds the process logger and installs it as the global and
// context default so zerolog.Ctx works before a request logger is attached.
func setupLogger(globals *Globals) zerolog.Logger {
	l := logger.Setup(globals.Debug)
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
