package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vt-go/internal/model"
	"vt-go/internal/vt"
)

// ParseViewport parses "lat lon span_lat span_lon"; fields may be separated
// by spaces or commas.
func ParseViewport(s string) (model.Viewport, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) != 4 {
		return model.Viewport{}, fmt.Errorf("viewport %q: want 4 numbers, got %d", s, len(fields))
	}

	var vals [4]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return model.Viewport{}, fmt.Errorf("viewport %q: %w", s, err)
		}
		vals[i] = v
	}
	return model.Viewport{
		CenterLatitude:  vals[0],
		CenterLongitude: vals[1],
		SpanLatitude:    vals[2],
		SpanLongitude:   vals[3],
	}, nil
}

// WatchViewport reads one viewport per line from r and keeps the journal in
// sync with the latest one, writing at most once per configured interval.
// Unparseable lines are logged and skipped. Returns the number of viewports read.
func (a *VTApp) WatchViewport(ctx context.Context, r io.Reader) (int, error) {
	var n int
	err := a.mutate(func() error {
		tracker := vt.NewViewportTracker(a.service)

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- tracker.Run(runCtx, seconds(a.cfg.Map.SyncIntervalSeconds))
		}()

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			v, err := ParseViewport(line)
			if err != nil {
				a.logger.Warn("skipping viewport", "error", err)
				continue
			}
			tracker.Update(v)
			n++
		}

		cancel()
		runErr := <-done
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading viewports: %w", err)
		}
		return runErr
	})
	return n, err
}
