// Command mockanalyzer is a stand-in for the screen analysis service for local runs.
package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	a := &analyzer{}
	if v := os.Getenv("MOCK_FAIL_EVERY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("invalid MOCK_FAIL_EVERY: %v", err)
		}
		a.failEvery = n
	}
	if v := os.Getenv("MOCK_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid MOCK_LATENCY: %v", err)
		}
		a.latency = d
	}

	addr := ":" + envOr("MOCK_PORT", "9000")
	log.Printf("Mock analyzer listening on %s (fail every %d, latency %s)", addr, a.failEvery, a.latency)
	srv := &http.Server{Addr: addr, Handler: newRouter(a), ReadHeaderTimeout: 10 * time.Second}
	log.Fatal(srv.ListenAndServe())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
