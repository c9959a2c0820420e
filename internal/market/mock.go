package market

import (
	"context"
	"time"
)

var mockAssets = []Symbol{
	{Symbol: "AAPL", Name: "Apple Inc. Common Stock"},
	{Symbol: "AMD", Name: "Advanced Micro Devices, Inc. Common Stock"},
	{Symbol: "AMZN", Name: "Amazon.com, Inc. Common Stock"},
	{Symbol: "GOOGL", Name: "Alphabet Inc. Class A Common Stock"},
	{Symbol: "META", Name: "Meta Platforms, Inc. Class A Common Stock"},
	{Symbol: "MSFT", Name: "Microsoft Corporation Common Stock"},
	{Symbol: "NFLX", Name: "Netflix, Inc. Common Stock"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation Common Stock"},
	{Symbol: "QQQ", Name: "Invesco QQQ Trust, Series 1"},
	{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust"},
	{Symbol: "TSLA", Name: "Tesla, Inc. Common Stock"},
}

// MockProvider serves a fixed asset list and a clock derived from regular
// NYSE hours for local development.
type MockProvider struct {
	Now func() time.Time
}

func (m *MockProvider) Status(context.Context) (*Status, error) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return mockClock(now()), nil
}

func (m *MockProvider) Assets(context.Context) ([]Symbol, error) {
	out := make([]Symbol, len(mockAssets))
	copy(out, mockAssets)
	return out, nil
}

func mockClock(t time.Time) *Status {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*3600)
	}
	t = t.In(loc)
	open := func(d time.Time) time.Time { return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, loc) }
	closeAt := func(d time.Time) time.Time { return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, loc) }
	weekday := func(d time.Time) bool { return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday }

	if weekday(t) && !t.Before(open(t)) && t.Before(closeAt(t)) {
		next := t.AddDate(0, 0, 1)
		for !weekday(next) {
			next = next.AddDate(0, 0, 1)
		}
		return &Status{IsOpen: true, NextOpen: open(next), NextClose: closeAt(t)}
	}

	day := t
	if !weekday(day) || !t.Before(open(day)) {
		day = day.AddDate(0, 0, 1)
		for !weekday(day) {
			day = day.AddDate(0, 0, 1)
		}
	}
	return &Status{IsOpen: false, NextOpen: open(day), NextClose: closeAt(day)}
}
