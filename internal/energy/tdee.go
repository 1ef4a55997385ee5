package energy

import "context"

// TDEE is total daily energy expenditure with the readings it was built from.
type TDEE struct {
	BMR    Reading
	NEAT   Reading
	Active Reading
	Total  float64
}

// SumTDEE adds the three expenditure terms. Degraded readings already carry
// 0 kcal, so a partial total (BMR only, BMR+NEAT) falls out naturally.
func SumTDEE(bmr, neat, active Reading) TDEE {
	return TDEE{
		BMR:    bmr,
		NEAT:   neat,
		Active: active,
		Total:  bmr.Kcal() + neat.Kcal() + active.Kcal(),
	}
}

// TDEESample is one emission of the live TDEE stream. Err carries a BMR
// failure (no profile, invalid profile); the TDEE is still filled in with a
// zero BMR so callers that tolerate it can show the partial sum.
type TDEESample struct {
	TDEE TDEE
	Err  error
}

// CombineTDEE recomputes TDEE whenever any of the three component streams
// emits, using the latest value of the other two. The output closes when ctx
// ends or all inputs close.
func CombineTDEE(ctx context.Context, bmr, neat, active <-chan Sample) <-chan TDEESample {
	combined := combineLatest(ctx, bmr, neat, active)
	out := make(chan TDEESample)
	go func() {
		defer close(out)
		for snap := range combined {
			b := snap[0]
			sample := TDEESample{Err: b.Err}
			bmrReading := b.Reading
			if b.Err != nil {
				bmrReading = Degrade(b.Err)
			}
			sample.TDEE = SumTDEE(bmrReading, snap[1].Reading, snap[2].Reading)

			select {
			case out <- sample:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
