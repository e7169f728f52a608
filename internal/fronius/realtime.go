package fronius

import (
	"context"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/jgoulah/pvrelay/internal/apierr"
)

// RealtimeData is the inverter's current output
type RealtimeData struct {
	Timestamp time.Time
	Power     float64 // W (PAC)
	DayEnergy float64 // Wh (DAY_ENERGY)
	Voltage   float64 // V (UAC)
}

type unitValue struct {
	Unit  string  `json:"Unit"`
	Value float64 `json:"Value"`
}

// PAC and UAC vanish from the response while the inverter sleeps
type realtimeResponse struct {
	Head *responseHead `json:"Head"`
	Body *struct {
		Data *struct {
			PAC       *unitValue `json:"PAC"`
			DayEnergy *unitValue `json:"DAY_ENERGY"`
			UAC       *unitValue `json:"UAC"`
		} `json:"Data"`
	} `json:"Body"`
}

// Realtime returns the inverter's current power, day energy and voltage
func (c *Client) Realtime(ctx context.Context) (RealtimeData, error) {
	c.log.Info("Getting inverter reading")

	body, err := c.get(ctx, realtimePath+"?"+RealtimeRequest{}.Query().Encode())
	if err != nil {
		return RealtimeData{}, err
	}

	var resp realtimeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return RealtimeData{}, &apierr.ParseError{Service: serviceName, Channel: "CommonInverterData", Err: err}
	}
	if resp.Body == nil || resp.Body.Data == nil {
		return RealtimeData{}, &apierr.ParseError{Service: serviceName, Channel: "CommonInverterData", Err: errNoValues}
	}

	var data RealtimeData
	if resp.Head != nil && resp.Head.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, resp.Head.Timestamp)
		if err != nil {
			return RealtimeData{}, &apierr.ParseError{Service: serviceName, Channel: "CommonInverterData", Err: fmt.Errorf("timestamp: %w", err)}
		}
		data.Timestamp = ts
	}

	d := resp.Body.Data
	if d.PAC != nil {
		data.Power = d.PAC.Value
	}
	if d.DayEnergy != nil {
		data.DayEnergy = d.DayEnergy.Value
	}
	if d.UAC != nil {
		data.Voltage = d.UAC.Value
	}
	return data, nil
}
