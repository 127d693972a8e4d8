// Package ingest reads the sensor feeds that drive content decisions: an
// environmental feed (temperature, humidity, weather) and an audience feed
// (per-person detections). Feeds arrive either as append-style JSON files
// owned by the sensor processes or as MQTT messages, and every source
// tolerates partial writes by reporting ErrDataUnavailable rather than
// returning garbage.
package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// timestampLayouts accepts both zoned RFC 3339 timestamps and the naive
// form some sensor writers emit. Naive timestamps are interpreted in local
// time since sensors and board run on the same host.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// readLatestRecord reads a feed file and returns its most recent record.
// A feed is either a JSON array of records (latest last) or a single record
// object. The read runs under ctx so a hung filesystem degrades to
// ErrDataUnavailable instead of blocking the decision cycle.
func readLatestRecord(ctx context.Context, path string) (gjson.Result, error) {
	type readResult struct {
		data []byte
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		data, err := os.ReadFile(path)
		ch <- readResult{data: data, err: err}
	}()

	var data []byte
	select {
	case <-ctx.Done():
		return gjson.Result{}, fmt.Errorf("%w: read %s: %v", ErrDataUnavailable, path, ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return gjson.Result{}, fmt.Errorf("%w: read %s: %v", ErrDataUnavailable, path, res.err)
		}
		data = res.data
	}

	if len(data) == 0 {
		return gjson.Result{}, fmt.Errorf("%w: %s is empty", ErrDataUnavailable, path)
	}
	// Sensor processes rewrite these files without coordination; a torn
	// write shows up as invalid JSON and counts as a missing feed.
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: %s contains invalid JSON", ErrDataUnavailable, path)
	}

	parsed := gjson.ParseBytes(data)
	if parsed.IsArray() {
		records := parsed.Array()
		if len(records) == 0 {
			return gjson.Result{}, fmt.Errorf("%w: %s has no records", ErrDataUnavailable, path)
		}
		return records[len(records)-1], nil
	}
	if !parsed.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: %s is not a record or record list", ErrDataUnavailable, path)
	}
	return parsed, nil
}

// parseRecordPayload validates a single-record payload, as delivered over MQTT.
func parseRecordPayload(payload []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(payload) {
		return gjson.Result{}, fmt.Errorf("%w: payload is not valid JSON", ErrDataUnavailable)
	}
	rec := gjson.ParseBytes(payload)
	if !rec.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: payload is not a record", ErrDataUnavailable)
	}
	return rec, nil
}

// recordTimestamp extracts a record's timestamp. A record without a parseable
// timestamp is treated as a partial write.
func recordTimestamp(rec gjson.Result) (time.Time, error) {
	raw := rec.Get("timestamp")
	if !raw.Exists() {
		return time.Time{}, fmt.Errorf("%w: record has no timestamp", ErrDataUnavailable)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw.String(), time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrDataUnavailable, raw.String())
}

// checkAge rejects samples older than maxAge. A zero maxAge disables the check.
func checkAge(ts time.Time, maxAge time.Duration) error {
	if maxAge <= 0 {
		return nil
	}
	if age := time.Since(ts); age > maxAge {
		return fmt.Errorf("%w: sample is %s old (max %s)", ErrDataUnavailable, age.Round(time.Second), maxAge)
	}
	return nil
}
