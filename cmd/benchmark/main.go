// Benchmark drives concurrent duplicate verification calls at a running
// instance to exercise the exactly-once credit path: every worker submits
// the same payment claim, and the ledger must end up with one Credit row.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	orderID     string
	paymentID   string
	signature   string
	token       string
)

var (
	totalRequests  uint64
	settledFirst   uint64 // 200 with already_processed=false
	settledReplay  uint64 // 200 with already_processed=true
	rejected       uint64 // 400s
	failOther      uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 10*time.Second, "Test duration")
	flag.StringVar(&orderID, "order", "", "Gateway order id to verify")
	flag.StringVar(&paymentID, "payment", "", "Payment id to verify")
	flag.StringVar(&signature, "signature", "", "Signature for the claim")
	flag.StringVar(&token, "token", "", "Bearer token for the session route")
}

func main() {
	flag.Parse()
	if orderID == "" || paymentID == "" || signature == "" {
		log.Fatal("order, payment and signature flags are required")
	}
	log.Printf("Starting benchmark | workers: %d | duration: %s", concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}
	wg.Wait()

	elapsed := time.Since(start)
	total := atomic.LoadUint64(&totalRequests)
	fmt.Printf("\n--- Results ---\n")
	fmt.Printf("Total:          %d (%.0f req/s)\n", total, float64(total)/elapsed.Seconds())
	fmt.Printf("First settle:   %d (must be exactly 1)\n", atomic.LoadUint64(&settledFirst))
	fmt.Printf("Replays:        %d\n", atomic.LoadUint64(&settledReplay))
	fmt.Printf("Rejected:       %d\n", atomic.LoadUint64(&rejected))
	fmt.Printf("Other failures: %d\n", atomic.LoadUint64(&failOther))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	payload, _ := json.Marshal(map[string]string{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  signature,
	})

	for time.Since(start) < duration {
		atomic.AddUint64(&totalRequests, 1)

		req, err := http.NewRequest(http.MethodPost, targetURL+"/me/deposits/verify", bytes.NewReader(payload))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		var body struct {
			Settlement struct {
				AlreadyProcessed bool `json:"already_processed"`
			} `json:"settlement"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK && !body.Settlement.AlreadyProcessed:
			atomic.AddUint64(&settledFirst, 1)
		case resp.StatusCode == http.StatusOK:
			atomic.AddUint64(&settledReplay, 1)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			atomic.AddUint64(&rejected, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
	}
}
