package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var sources = []string{"verified_collector", "field_analyst", "partner_agency", "open_source"}

var dataTypes = []string{"event", "entity", "relationship", "document"}

func main() {
	targetURL := flag.String("url", "http://localhost:8080/submit", "Target URL for submission")
	apiKey := flag.String("api-key", "supersecretkey", "API Key for authentication")
	investigations := flag.Int("investigations", 5, "Number of distinct investigations to spread load across")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Investigations: %d", *concurrency, *duration, *rps, *investigations)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for {
				select {
				case <-ctx.Done():
					return
				default:
					limiter.Wait(ctx) // Wait for token from rate limiter

					invID := fmt.Sprintf("inv-%d", rng.Intn(*investigations))
					payload := fmt.Sprintf(`{
						"investigation_id": %q,
						"source": %q,
						"data_type": %q,
						"priority": %d,
						"correlation_id": %q,
						"raw_payload": {
							"type": "sighting",
							"note": "load test message from worker %d, contact test%d@example.com",
							"timestamp": %q
						}
					}`,
						invID,
						sources[rng.Intn(len(sources))],
						dataTypes[rng.Intn(len(dataTypes))],
						rng.Intn(11),
						uuid.NewString(),
						workerID, workerID,
						time.Now().Format(time.RFC3339Nano))

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue // Should not happen
					}
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("X-API-Key", *apiKey)

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					if resp.StatusCode == http.StatusAccepted {
						successCount.Add(1)
					} else {
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (202 Accepted): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
