// Package fronius reads archive and realtime data from a Fronius inverter's
// local Solar API (v1).
package fronius

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jgoulah/pvrelay/internal/apierr"
	"github.com/jgoulah/pvrelay/pkg/models"
)

const (
	archivePath  = "/solar_api/v1/GetArchiveData.cgi"
	realtimePath = "/solar_api/v1/GetInverterRealtimeData.cgi"

	// ChannelEnergy holds the Wh produced in each archive interval
	ChannelEnergy = "EnergyReal_WAC_Sum_Produced"
	// ChannelVoltage holds the phase 1 AC voltage sampled at each interval
	ChannelVoltage = "Voltage_AC_Phase_1"

	// Archive data is keyed by node; single inverter systems report as inverter/1
	inverterNode = "inverter/1"

	serviceName = "fronius"
)

// Client talks to one inverter
type Client struct {
	baseURL string
	client  *http.Client
	log     logrus.FieldLogger
}

// NewClient creates a client for the inverter at host. host may be a bare
// hostname/IP or a full base URL.
func NewClient(host string, timeout time.Duration, log logrus.FieldLogger) *Client {
	baseURL := strings.TrimRight(host, "/")
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log.WithField("component", "fronius"),
	}
}

// FetchEnergySeries returns the energy produced per interval between start and end
func (c *Client) FetchEnergySeries(ctx context.Context, start, end time.Time) (models.ArchiveSeries, error) {
	return c.fetchSeries(ctx, ArchiveRequest{Channel: ChannelEnergy, Start: start, End: end})
}

// FetchVoltageSeries returns the AC voltage per interval between start and end
func (c *Client) FetchVoltageSeries(ctx context.Context, start, end time.Time) (models.ArchiveSeries, error) {
	return c.fetchSeries(ctx, ArchiveRequest{Channel: ChannelVoltage, Start: start, End: end})
}

// FetchProfile fetches both archive channels starting one interval after cp and
// merges them. Either fetch failing fails the whole call.
func (c *Client) FetchProfile(ctx context.Context, cp models.Reading, end time.Time) ([]models.Reading, error) {
	start := cp.Timestamp + models.ReadingInterval
	startTime := time.Unix(start, 0).UTC()

	c.log.Info("Getting inverter energy archive readings")
	energy, err := c.FetchEnergySeries(ctx, startTime, end)
	if err != nil {
		return nil, fmt.Errorf("fetching energy archive: %w", err)
	}

	c.log.Info("Getting inverter voltage archive readings")
	voltage, err := c.FetchVoltageSeries(ctx, startTime, end)
	if err != nil {
		return nil, fmt.Errorf("fetching voltage archive: %w", err)
	}

	profile, orphans := BuildMergedProfile(energy, voltage, start, cp.DayEnergy)
	for _, offset := range orphans {
		c.log.WithField("offset", offset).Warn("Voltage sample has no matching energy sample, dropped")
	}

	c.log.WithFields(logrus.Fields{
		"energy_samples":  len(energy),
		"voltage_samples": len(voltage),
		"readings":        len(profile),
	}).Debug("Merged archive series")

	return profile, nil
}

func (c *Client) fetchSeries(ctx context.Context, ar ArchiveRequest) (models.ArchiveSeries, error) {
	body, err := c.get(ctx, archivePath+"?"+ar.Query().Encode())
	if err != nil {
		return nil, err
	}

	series, err := decodeSeries(body, ar.Channel)
	if err != nil {
		// Missing data is normal at night or right after midnight
		c.log.WithError(err).WithField("channel", ar.Channel).Warn("No archive values in response, treating as empty")
		return models.ArchiveSeries{}, nil
	}
	return series, nil
}

// get performs a GET against the inverter and returns the body of a successful response
func (c *Client) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	reqURL := c.baseURL + pathAndQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.log.WithFields(logrus.Fields{"url": reqURL, "status": resp.StatusCode}).Error("Bad request")
		return nil, &apierr.UpstreamError{
			Service:    serviceName,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	c.log.WithFields(logrus.Fields{"url": reqURL, "status": resp.StatusCode, "body": string(body)}).Debug("OK")
	return body, nil
}
