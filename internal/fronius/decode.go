package fronius

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-json-experiment/json"

	"github.com/jgoulah/pvrelay/internal/apierr"
	"github.com/jgoulah/pvrelay/pkg/models"
)

var errNoValues = errors.New("response has no Values for channel")

// Every level is optional; the inverter drops whole subtrees when it has nothing to report
type archiveResponse struct {
	Head *responseHead `json:"Head"`
	Body *struct {
		Data map[string]*struct {
			Data map[string]*struct {
				Unit   string             `json:"Unit"`
				Values map[string]float64 `json:"Values"`
			} `json:"Data"`
		} `json:"Data"`
	} `json:"Body"`
}

type responseHead struct {
	Status *struct {
		Code   int    `json:"Code"`
		Reason string `json:"Reason"`
	} `json:"Status"`
	Timestamp string `json:"Timestamp"`
}

// decodeSeries extracts Body.Data["inverter/1"].Data[channel].Values. Any missing
// level is reported as a *apierr.ParseError.
func decodeSeries(body []byte, channel string) (models.ArchiveSeries, error) {
	var resp archiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &apierr.ParseError{Service: serviceName, Channel: channel, Err: err}
	}

	values, ok := lookupValues(&resp, channel)
	if !ok {
		err := errNoValues
		if resp.Head != nil && resp.Head.Status != nil && resp.Head.Status.Code != 0 {
			err = fmt.Errorf("%w (status %d: %s)", errNoValues, resp.Head.Status.Code, resp.Head.Status.Reason)
		}
		return nil, &apierr.ParseError{Service: serviceName, Channel: channel, Err: err}
	}

	series := make(models.ArchiveSeries, len(values))
	for key, value := range values {
		offset, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, &apierr.ParseError{Service: serviceName, Channel: channel, Err: fmt.Errorf("offset %q: %w", key, err)}
		}
		series[offset] = value
	}
	return series, nil
}

func lookupValues(resp *archiveResponse, channel string) (map[string]float64, bool) {
	if resp.Body == nil {
		return nil, false
	}
	node := resp.Body.Data[inverterNode]
	if node == nil {
		return nil, false
	}
	ch := node.Data[channel]
	if ch == nil || ch.Values == nil {
		return nil, false
	}
	return ch.Values, true
}
