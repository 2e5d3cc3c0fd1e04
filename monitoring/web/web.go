// Package web holds the page of the monitoring tool.
package web

import (
	_ "embed"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed dist/index.html
var index []byte

// Handler serves the page at the root path and nothing else.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}

		page, err := Page()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
}

// Page returns the HTML page. In development mode it is read from the source
// tree on every call, so that it can be edited while the server runs.
func Page() ([]byte, error) {
	if !isDevelopmentMode() {
		return index, nil
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("cannot locate the page source")
	}

	return os.ReadFile(filepath.Join(filepath.Dir(file), "dist", "index.html"))
}

// isDevelopmentMode returns true if environment variable MESITOPO_MONITOR_DEV
// is set.
func isDevelopmentMode() bool {
	evValue, exist := os.LookupEnv("MESITOPO_MONITOR_DEV")
	if !exist {
		return false
	}

	return strings.ToLower(evValue) == "true" || evValue == "1"
}
