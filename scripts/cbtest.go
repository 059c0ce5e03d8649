// cbtest is a tool to verify circuit breaker behavior end to end.
// It serves a toggleable /health backend, flips it unhealthy, and
// watches the breaker service's /breakers endpoint trip and recover.
//
// Usage:
//
//	go run cbtest.go -svc http://localhost:8080 -name cache -port 6379
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		svcURL  = flag.String("svc", "http://localhost:8080", "Circuit breaker service URL")
		name    = flag.String("name", "cache", "Breaker name to watch")
		port    = flag.Int("port", 6379, "Port to serve the fake dependency on")
		timeout = flag.Duration("timeout", 2*time.Minute, "Max time to wait per phase")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	var healthy atomic.Bool
	healthy.Store(true)

	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if healthy.Load() {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		})
		if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), mux); err != nil {
			fmt.Println(colorRed + "  ✗ Could not serve fake dependency: " + err.Error() + colorReset)
			os.Exit(1)
		}
	}()

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║                 CIRCUIT BREAKER TEST                           ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Verify the breaker sees a healthy dependency
	fmt.Println(colorBlue + "━━━ PHASE 1: Healthy Dependency ━━━" + colorReset)
	if !waitForState(client, *svcURL, *name, "CLOSED", *timeout) {
		fmt.Println(colorRed + "  ✗ Breaker never reported CLOSED. Is the service running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Breaker CLOSED, probes succeeding" + colorReset)
	fmt.Println()

	// PHASE 2: Fail the dependency and watch the breaker trip
	fmt.Println(colorBlue + "━━━ PHASE 2: Dependency Failure ━━━" + colorReset)
	healthy.Store(false)
	fmt.Println("  Dependency now returns 500s...")
	if !waitForState(client, *svcURL, *name, "OPEN", *timeout) {
		fmt.Println(colorRed + "  ✗ Breaker never tripped to OPEN" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Breaker tripped to OPEN" + colorReset)
	fmt.Println()

	// PHASE 3: Recover the dependency and watch the breaker close
	fmt.Println(colorBlue + "━━━ PHASE 3: Recovery ━━━" + colorReset)
	healthy.Store(true)
	fmt.Println("  Dependency healthy again, waiting for recovery timeout + probes...")
	if !waitForState(client, *svcURL, *name, "CLOSED", *timeout) {
		fmt.Println(colorRed + "  ✗ Breaker never closed after recovery" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Breaker recovered to CLOSED" + colorReset)
	fmt.Println()

	// PHASE 4: Metrics sanity
	fmt.Println(colorBlue + "━━━ PHASE 4: Metrics ━━━" + colorReset)
	status, err := getStatus(client, *svcURL, *name)
	if err != nil {
		fmt.Printf(colorYellow+"  Could not fetch status: %v\n"+colorReset, err)
	} else {
		metrics := status["metrics"].(map[string]interface{})
		fmt.Printf("  total=%v success=%v failed=%v rejected=%v state_changes=%v\n",
			metrics["total_calls"], metrics["successful_calls"],
			metrics["failed_calls"], metrics["rejected_calls"],
			metrics["state_changes"])
		fmt.Printf("  success_rate=%.1f%%\n", status["success_rate"].(float64))
	}
	fmt.Println()

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║                    TEST COMPLETE                               ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()
	fmt.Println("Key behaviors verified:")
	fmt.Println("  1. CLOSED while the dependency is healthy")
	fmt.Println("  2. Trip to OPEN after consecutive probe failures")
	fmt.Println("  3. HALF-OPEN probing and recovery to CLOSED")
	fmt.Println("  4. Metrics exposed via /breakers")
}

func waitForState(client *http.Client, svcURL, name, want string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, err := getStatus(client, svcURL, name)
		if err == nil {
			state, _ := status["state"].(string)
			fmt.Printf("  breaker %s: %s\n", name, state)
			if state == want {
				return true
			}
		}
		time.Sleep(2 * time.Second)
	}
	return false
}

func getStatus(client *http.Client, svcURL, name string) (map[string]interface{}, error) {
	resp, err := client.Get(svcURL + "/breakers/" + name)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return status, nil
}
