// 文件路径: internal/bootstrap/server.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/creamcroissant/xboard-mobile/internal/config"
)

// NewHTTPServer constructs a baseline http.Server with conservative defaults.
// WriteTimeout leaves room for a full fetch budget plus a panel lookup.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}
}
