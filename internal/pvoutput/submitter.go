// Package pvoutput submits readings to the PVOutput batch status API.
package pvoutput

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jgoulah/pvrelay/internal/apierr"
	"github.com/jgoulah/pvrelay/pkg/models"
)

const (
	batchPath   = "/service/r2/addbatchstatus.jsp"
	serviceName = "pvoutput"

	headerAPIKey   = "X-Pvoutput-Apikey"
	headerSystemID = "X-Pvoutput-SystemId"
)

// Pacer blocks until the next batch may be posted
type Pacer interface {
	Wait(ctx context.Context) error
}

// Credentials identify the PVOutput system
type Credentials struct {
	APIKey   string
	SystemID string
}

// Options configures a Submitter
type Options struct {
	BaseURL     string
	Credentials Credentials
	BatchSize   int
	Pause       time.Duration // gap between the end of one post and the start of the next
	Timeout     time.Duration
	DryRun      bool
}

// Result counts what PVOutput accepted
type Result struct {
	Batches  int
	Readings int
}

// Submitter posts readings in batches
type Submitter struct {
	baseURL   string
	creds     Credentials
	batchSize int
	pacer     Pacer
	client    *http.Client
	dryRun    bool
	log       logrus.FieldLogger
}

// gapPacer holds off the next post for a fixed interval counted from the
// moment Wait is called, which is right after the previous post returned.
type gapPacer struct {
	interval time.Duration
}

func (p gapPacer) Wait(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(p.interval), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}

// New creates a Submitter. Consecutive posts are separated by opts.Pause,
// measured from the end of one post to the start of the next.
func New(opts Options, log logrus.FieldLogger) *Submitter {
	return &Submitter{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		creds:     opts.Credentials,
		batchSize: opts.BatchSize,
		pacer:     gapPacer{interval: opts.Pause},
		client:    &http.Client{Timeout: opts.Timeout},
		dryRun:    opts.DryRun,
		log:       log.WithField("component", "pvoutput"),
	}
}

// Submit posts profile in order. The first rejected batch stops the run and
// later batches are not sent.
func (s *Submitter) Submit(ctx context.Context, profile []models.Reading) (Result, error) {
	var res Result

	chunks := Chunk(profile, s.batchSize)
	for i, chunk := range chunks {
		for _, r := range chunk {
			s.log.WithFields(logrus.Fields{
				"date":       r.Time().Format("20060102"),
				"time":       r.Time().Format("15:04"),
				"ts":         r.Timestamp,
				"voltage":    r.Voltage,
				"day_energy": r.DayEnergy,
			}).Debug("Batch add")
		}

		if i > 0 && !s.dryRun {
			if err := s.pacer.Wait(ctx); err != nil {
				return res, fmt.Errorf("pausing between batches: %w", err)
			}
		}

		req := BatchRequest{Readings: chunk}
		if err := s.post(ctx, req, i+1, len(chunks)); err != nil {
			return res, err
		}

		res.Batches++
		res.Readings += len(chunk)
	}

	return res, nil
}

func (s *Submitter) post(ctx context.Context, br BatchRequest, n, total int) error {
	reqURL := s.baseURL + batchPath
	form := br.Form()
	payload := form.Encode()

	log := s.log.WithFields(logrus.Fields{"url": reqURL, "batch": fmt.Sprintf("%d/%d", n, total)})
	log.WithField("data", form.Get("data")).Debug("Batch payload")

	if s.dryRun {
		log.Info("POST OK (dry run)")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(headerAPIKey, s.creds.APIKey)
	req.Header.Set(headerSystemID, s.creds.SystemID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).WithField("status", resp.StatusCode).Error("Could not read response")
		return fmt.Errorf("reading response body (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 {
		log.WithFields(logrus.Fields{
			"status":   resp.StatusCode,
			"response": string(respBody),
			"data":     form.Get("data"),
		}).Error("Bad request")
		return &apierr.UpstreamError{
			Service:    serviceName,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Payload:    form.Get("data"),
		}
	}

	log.WithField("status", resp.StatusCode).Info("POST OK")
	log.WithField("response", string(respBody)).Debug("POST response")
	return nil
}
