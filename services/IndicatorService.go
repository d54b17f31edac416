package services

import (
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

var IndicatorDefinitions = []dto.IndicatorDefinition{
	{Name: "MA", Description: "Simple moving average of close", Periods: []int{5, 10, 20, 30, 60}},
	{Name: "MACD", Description: "EMA12 - EMA26 with EMA9 signal line and histogram", Periods: []int{12, 26, 9}},
	{Name: "KDJ", Description: "Stochastic oscillator K/D/J", Periods: []int{9, 3, 3}},
	{Name: "RSI", Description: "Relative strength index on simple average gains and losses", Periods: []int{6, 12, 24}},
	{Name: "BOLL", Description: "Bollinger bands, MA20 +/- 2 standard deviations", Periods: []int{20}},
	{Name: "VOL_MA", Description: "Moving average of volume", Periods: []int{5, 10}},
	{Name: "SIGNAL", Description: "Buy on MACD golden cross, sell on death cross, strength 0..5"},
}

// SMA returns the simple moving average; positions before the first full
// window are nil.
func SMA(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			avg := sum / float64(period)
			out[i] = &avg
		}
	}
	return out
}

// EMA is seeded with the first value.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func MACD(closes []float64) (macd, signal, hist []float64) {
	fast := EMA(closes, 12)
	slow := EMA(closes, 26)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	signal = EMA(macd, 9)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = macd[i] - signal[i]
	}
	return macd, signal, hist
}

func RSI(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	for i := period; i < len(closes); i++ {
		var gains, losses float64
		for j := i - period + 1; j <= i; j++ {
			diff := closes[j] - closes[j-1]
			if diff > 0 {
				gains += diff
			} else {
				losses -= diff
			}
		}
		var rsi float64
		switch {
		case gains == 0 && losses == 0:
			rsi = 50
		case losses == 0:
			rsi = 100
		default:
			rsi = 100 - 100/(1+gains/losses)
		}
		out[i] = &rsi
	}
	return out
}

// KDJ uses an n-day RSV smoothed with 1/3 weights, K and D start at 50.
func KDJ(highs, lows, closes []float64, n int) (k, d, j []float64) {
	size := len(closes)
	k, d, j = make([]float64, size), make([]float64, size), make([]float64, size)
	prevK, prevD := 50.0, 50.0
	for i := 0; i < size; i++ {
		start := max(0, i-n+1)
		hh, ll := highs[start], lows[start]
		for x := start + 1; x <= i; x++ {
			hh = math.Max(hh, highs[x])
			ll = math.Min(ll, lows[x])
		}
		rsv := 50.0
		if hh != ll {
			rsv = (closes[i] - ll) / (hh - ll) * 100
		}
		k[i] = 2.0/3.0*prevK + 1.0/3.0*rsv
		d[i] = 2.0/3.0*prevD + 1.0/3.0*k[i]
		j[i] = 3*k[i] - 2*d[i]
		prevK, prevD = k[i], d[i]
	}
	return k, d, j
}

func Bollinger(closes []float64, period int, width float64) (upper, middle, lower []*float64) {
	middle = SMA(closes, period)
	upper = make([]*float64, len(closes))
	lower = make([]*float64, len(closes))
	for i, m := range middle {
		if m == nil {
			continue
		}
		var sq float64
		for x := i - period + 1; x <= i; x++ {
			sq += (closes[x] - *m) * (closes[x] - *m)
		}
		sd := math.Sqrt(sq / float64(period))
		u, l := *m+width*sd, *m-width*sd
		upper[i], lower[i] = &u, &l
	}
	return upper, middle, lower
}

// ComputeIndicators expects bars ordered oldest first.
func ComputeIndicators(bars []types.StockDaily) []types.TechnicalIndicator {
	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i], highs[i], lows[i], volumes[i] = b.Close, b.High, b.Low, float64(b.Volume)
	}

	ma5, ma10, ma20, ma30, ma60 := SMA(closes, 5), SMA(closes, 10), SMA(closes, 20), SMA(closes, 30), SMA(closes, 60)
	macd, signal, hist := MACD(closes)
	k, d, j := KDJ(highs, lows, closes, 9)
	rsi6, rsi12, rsi24 := RSI(closes, 6), RSI(closes, 12), RSI(closes, 24)
	bu, bm, bl := Bollinger(closes, 20, 2)
	vma5, vma10 := SMA(volumes, 5), SMA(volumes, 10)

	out := make([]types.TechnicalIndicator, n)
	for i, b := range bars {
		ind := types.TechnicalIndicator{
			StockID:       b.StockID,
			DailyID:       b.ID,
			Date:          b.Date,
			MA5:           ma5[i],
			MA10:          ma10[i],
			MA20:          ma20[i],
			MA30:          ma30[i],
			MA60:          ma60[i],
			MACD:          ptr(macd[i]),
			MACDSignal:    ptr(signal[i]),
			MACDHistogram: ptr(hist[i]),
			K:             ptr(k[i]),
			D:             ptr(d[i]),
			J:             ptr(j[i]),
			RSI6:          rsi6[i],
			RSI12:         rsi12[i],
			RSI24:         rsi24[i],
			BollUpper:     bu[i],
			BollMiddle:    bm[i],
			BollLower:     bl[i],
			VolumeMA5:     roundVolume(vma5[i]),
			VolumeMA10:    roundVolume(vma10[i]),
		}
		if i > 0 {
			ind.BuySignal = hist[i-1] < 0 && hist[i] > 0
			ind.SellSignal = hist[i-1] > 0 && hist[i] < 0
		}
		ind.SignalStrength = signalStrength(&ind, b)
		out[i] = ind
	}
	return out
}

// signalStrength counts the confirmations that agree with a cross.
func signalStrength(ind *types.TechnicalIndicator, bar types.StockDaily) int {
	if !ind.BuySignal && !ind.SellSignal {
		return 0
	}
	bullish := ind.BuySignal
	score := 1
	confirm := func(ok bool) {
		if ok {
			score++
		}
	}
	if ind.MA20 != nil {
		confirm((bar.Close > *ind.MA20) == bullish)
	}
	if ind.MA5 != nil && ind.MA10 != nil {
		confirm((*ind.MA5 > *ind.MA10) == bullish)
	}
	if ind.K != nil && ind.D != nil {
		confirm((*ind.K > *ind.D) == bullish)
	}
	if ind.RSI6 != nil {
		if bullish {
			confirm(*ind.RSI6 < 70)
		} else {
			confirm(*ind.RSI6 > 30)
		}
	}
	return min(score, 5)
}

func ptr(v float64) *float64 {
	return &v
}

func roundVolume(v *float64) *int64 {
	if v == nil {
		return nil
	}
	r := int64(math.Round(*v))
	return &r
}

// RecomputeIndicators rebuilds every indicator row of a stock from its daily bars.
func RecomputeIndicators(stockID uint) (int, error) {
	var bars []types.StockDaily
	if err := db.DB.Where("stock_id = ?", stockID).Order("date asc").Find(&bars).Error; err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	rows := ComputeIndicators(bars)
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "daily_id"}},
			UpdateAll: true,
		}).CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return 0, fmt.Errorf("save indicators for stock %d: %w", stockID, err)
	}
	return len(rows), nil
}
