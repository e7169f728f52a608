package fronius

import (
	"net/url"
	"time"
)

// isoLayout renders extended ISO-8601 with an explicit UTC offset, e.g.
// 2015-10-20T00:00:00+00:00, which is what the Solar API expects.
const isoLayout = "2006-01-02T15:04:05-07:00"

// ArchiveRequest describes one GetArchiveData query
type ArchiveRequest struct {
	Channel string
	Start   time.Time
	End     time.Time
}

// Query returns the URL parameters for the request
func (r ArchiveRequest) Query() url.Values {
	q := url.Values{}
	q.Set("Scope", "System")
	q.Set("StartDate", FormatISO(r.Start))
	q.Set("EndDate", FormatISO(r.End))
	q.Set("Channel", r.Channel)
	return q
}

// RealtimeRequest describes one GetInverterRealtimeData query
type RealtimeRequest struct {
	DeviceID string
}

// Query returns the URL parameters for the request
func (r RealtimeRequest) Query() url.Values {
	deviceID := r.DeviceID
	if deviceID == "" {
		deviceID = "1"
	}
	q := url.Values{}
	q.Set("Scope", "Device")
	q.Set("DeviceID", deviceID)
	q.Set("DataCollection", "CommonInverterData")
	return q
}

// FormatISO formats t in UTC for the Solar API
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
