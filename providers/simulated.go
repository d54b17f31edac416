package providers

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"istock.com/dto"
)

// Simulated produces deterministic prices. The same symbol gives the same
// quote within one minute, and a given symbol and day always give the
// same daily bar whatever range it was requested in.
type Simulated struct {
	name string
	now  func() time.Time
}

func NewSimulated(name string) *Simulated {
	if name == "" {
		name = "simulated"
	}
	return &Simulated{name: name, now: time.Now}
}

func (s *Simulated) Name() string { return s.name }

func BasePrice(symbol string) float64 {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 100
	}
	return 100 + float64(symbol[0]%100)
}

var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func dayNumber(day time.Time) int64 {
	return int64(day.Sub(epoch).Hours() / 24)
}

// level is the closing price for a day: a slow cycle around the base price
// plus noise seeded by the day itself.
func level(symbol string, day int64) float64 {
	base := BasePrice(symbol)
	phase := seeded(symbol, 0).Float64() * 2 * math.Pi
	noise := seeded(symbol, day).Float64() - 0.5
	cycle := math.Sin(2*math.Pi*float64(day)/90 + phase)
	return math.Max(1, base*(1+0.1*cycle+0.04*noise))
}

func previousWeekday(day time.Time) time.Time {
	day = day.AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func seeded(symbol string, bucket int64) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(symbol)))
	return rand.New(rand.NewPCG(h.Sum64(), uint64(bucket)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Simulated) Quote(_ context.Context, symbol string) (*dto.Quote, error) {
	t := s.now()
	rng := seeded(symbol, t.Unix()/60)
	base := BasePrice(symbol)
	change := (rng.Float64() - 0.5) * base * 0.02
	price := base + change

	return &dto.Quote{
		Symbol:        strings.ToUpper(symbol),
		Price:         round2(price),
		Change:        round2(change),
		ChangePercent: round2(change / base * 100),
		Open:          round2(base),
		High:          round2(math.Max(base, price) * (1 + rng.Float64()*0.005)),
		Low:           round2(math.Min(base, price) * (1 - rng.Float64()*0.005)),
		PreClose:      round2(base),
		Volume:        rng.Int64N(10_000_000),
		Timestamp:     t,
	}, nil
}

// Daily returns one bar per weekday in [from, to]. Each bar opens at the
// previous weekday's close.
func (s *Simulated) Daily(_ context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	day := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC()

	var bars []Bar
	for ; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		n := dayNumber(day)
		open := level(symbol, dayNumber(previousWeekday(day)))
		price := level(symbol, n)

		rng := seeded(symbol, n)
		rng.Float64() // consumed by level
		high := math.Max(open, price) * (1 + rng.Float64()*0.01)
		low := math.Min(open, price) * (1 - rng.Float64()*0.01)
		bars = append(bars, Bar{
			Date:   day,
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(price),
			Volume: 100_000 + rng.Int64N(5_000_000),
		})
	}
	return bars, nil
}

func (s *Simulated) Ping(context.Context) error { return nil }
