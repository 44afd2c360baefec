package indicators

import (
	"math"

	"smartMoneyBot/internal/domain"
)

const (
	dojiMaxBodyPct   = 0.10
	shadowMaxBodyPct = 0.30 // hammer and shooting star
	shadowBodyRatio  = 2.0  // dominant shadow must exceed this multiple of the body
)

type candleParts struct {
	Body, Upper, Lower, Range float64
	BodyPct                   float64
}

func split(k *domain.Kline) candleParts {
	body := k.Body()
	rng := k.Range()
	return candleParts{
		Body:    body,
		Upper:   k.High - math.Max(k.Open, k.Close),
		Lower:   math.Min(k.Open, k.Close) - k.Low,
		Range:   rng,
		BodyPct: body / (rng + epsilon),
	}
}

func isHammer(cp candleParts) bool {
	return cp.BodyPct < shadowMaxBodyPct && cp.Lower > shadowBodyRatio*cp.Body && cp.Lower > cp.Upper
}

func isShootingStar(cp candleParts) bool {
	return cp.BodyPct < shadowMaxBodyPct && cp.Upper > shadowBodyRatio*cp.Body && cp.Upper > cp.Lower
}

func isBullishEngulfing(prev, cur *domain.Kline) bool {
	return prev.IsBearish() && cur.IsBullish() && cur.Open <= prev.Close && cur.Close >= prev.Open
}

func isBearishEngulfing(prev, cur *domain.Kline) bool {
	return prev.IsBullish() && cur.IsBearish() && cur.Open >= prev.Close && cur.Close <= prev.Open
}

func computePatterns(f *Frame) {
	for i, k := range f.Klines {
		cp := split(k)
		b := &f.Bars[i]
		b.Doji = cp.BodyPct < dojiMaxBodyPct
		b.Hammer = isHammer(cp)
		b.ShootingStar = isShootingStar(cp)
		if i > 0 {
			b.BullishEngulfing = isBullishEngulfing(f.Klines[i-1], k)
			b.BearishEngulfing = isBearishEngulfing(f.Klines[i-1], k)
		}
	}
}
