package signal

// EMA returns the exponential moving average series of values. The first
// element is the simple average of the first period values, so the output
// is aligned with values[period-1:]. Returns nil when there is not enough data.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	alpha := 2.0 / float64(period+1)

	sum := 0.0
	for _, v := range values[:period] {
		sum += v
	}
	prev := sum / float64(period)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, prev)
	for _, v := range values[period:] {
		prev = v*alpha + prev*(1-alpha)
		out = append(out, prev)
	}
	return out
}

// MACD returns the MACD line and its signal line, both aligned to the end of
// values and of equal length.
func MACD(values []float64, short, long, signalPeriod int) (line, signal []float64) {
	if short <= 0 || long <= short {
		return nil, nil
	}
	fast := EMA(values, short)
	slow := EMA(values, long)
	if len(slow) == 0 {
		return nil, nil
	}

	fast = fast[len(fast)-len(slow):]
	line = make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i] - slow[i]
	}

	signal = EMA(line, signalPeriod)
	if len(signal) == 0 {
		return nil, nil
	}
	return line[len(line)-len(signal):], signal
}

// RSI returns the Wilder-smoothed relative strength index series.
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period+1 {
		return nil
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	out := make([]float64, 0, len(values)-period)
	out = append(out, rsiValue(gain, loss))

	n := float64(period)
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		up, down := 0.0, 0.0
		if d > 0 {
			up = d
		} else {
			down = -d
		}
		gain = (gain*(n-1) + up) / n
		loss = (loss*(n-1) + down) / n
		out = append(out, rsiValue(gain, loss))
	}
	return out
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	return 100 - 100/(1+gain/loss)
}
