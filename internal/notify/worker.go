// Package notify delivers settlement webhooks to merchant backends. Jobs
// are queued in Postgres and drained by a polling worker; SKIP LOCKED keeps
// multiple replicas from double-delivering.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/satpay/walletd/internal/store"
)

const (
	pollInterval = 5 * time.Second
	maxAttempts  = 5
	sendTimeout  = 5 * time.Second
)

type Worker struct {
	store  *store.Store
	secret string
	http   *http.Client
	log    *zap.Logger
}

func NewWorker(s *store.Store, signingSecret string, log *zap.Logger) *Worker {
	return &Worker{
		store:  s,
		secret: signingSecret,
		http:   &http.Client{Timeout: sendTimeout},
		log:    log,
	}
}

// Run polls for due jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	w.log.Info("webhook worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("webhook worker stopped")
			return
		case <-ticker.C:
			if err := w.processOne(ctx); err != nil {
				w.log.Error("webhook job processing failed", zap.Error(err))
			}
		}
	}
}

func (w *Worker) processOne(ctx context.Context) error {
	tx, err := w.store.Db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	job, err := w.store.NextWebhookJob(ctx, tx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	if sendErr := w.send(ctx, job.URL, job.Payload); sendErr != nil {
		// Linear-ish backoff, capped by maxAttempts.
		nextRun := time.Now().Add(time.Duration(job.Attempts*10+10) * time.Second)
		w.log.Warn("webhook delivery failed",
			zap.String("url", job.URL),
			zap.Int("attempts", job.Attempts),
			zap.Error(sendErr))
		if err := w.store.RetryWebhookJob(ctx, tx, job.ID, job.Attempts+1, maxAttempts, nextRun); err != nil {
			return err
		}
	} else {
		if err := w.store.CompleteWebhookJob(ctx, tx, job.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// send POSTs the payload with an X-Wallet-Signature HMAC so merchants can
// authenticate it the same way we authenticate provider webhooks.
func (w *Worker) send(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "walletd-webhook/1.0")

	mac := hmac.New(sha256.New, []byte(w.secret))
	mac.Write(payload)
	req.Header.Set("X-Wallet-Signature", hex.EncodeToString(mac.Sum(nil)))

	resp, err := w.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("merchant endpoint returned %d", resp.StatusCode)
	}
	return nil
}
