package energy

import "time"

// Mode is the date-scoping policy applied to a selected date.
type Mode int

const (
	ModeIdle Mode = iota
	// ModeLive keeps recomputing today's balance as data arrives.
	ModeLive
	// ModeHistorical computes a past day once from its closed window.
	ModeHistorical
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeHistorical:
		return "historical"
	}
	return "idle"
}

// EnergyBalance is the derived daily result. It is rebuilt on every
// recombination and never stored by this package.
//
// TDEE = BMR + NEAT + ActiveCalories; DeficitSurplus = TDEE - CaloriesIn,
// positive for a deficit and negative for a surplus.
type EnergyBalance struct {
	Date           time.Time
	BMR            float64
	NEAT           float64
	ActiveCalories float64
	TDEE           float64
	CaloriesIn     float64
	DeficitSurplus float64

	NEATStatus       Status
	ActiveStatus     Status
	CaloriesInStatus Status
}

func newBalance(day time.Time, tdee TDEE, in Reading) EnergyBalance {
	return EnergyBalance{
		Date:             day,
		BMR:              tdee.BMR.Kcal(),
		NEAT:             tdee.NEAT.Kcal(),
		ActiveCalories:   tdee.Active.Kcal(),
		TDEE:             tdee.Total,
		CaloriesIn:       in.Kcal(),
		DeficitSurplus:   tdee.Total - in.Kcal(),
		NEATStatus:       tdee.NEAT.Status(),
		ActiveStatus:     tdee.Active.Status(),
		CaloriesInStatus: in.Status(),
	}
}

// PermissionDenied lists the optional components whose source denied access,
// so a caller can prompt for it instead of showing "no data yet".
func (b EnergyBalance) PermissionDenied() []Component {
	var denied []Component
	if b.NEATStatus == StatusPermissionDenied {
		denied = append(denied, ComponentNEAT)
	}
	if b.ActiveStatus == StatusPermissionDenied {
		denied = append(denied, ComponentActive)
	}
	if b.CaloriesInStatus == StatusPermissionDenied {
		denied = append(denied, ComponentCaloriesIn)
	}
	return denied
}

// Direction is "deficit", "surplus" or "balanced".
func (b EnergyBalance) Direction() string {
	switch {
	case b.DeficitSurplus > 0:
		return "deficit"
	case b.DeficitSurplus < 0:
		return "surplus"
	}
	return "balanced"
}

// Update is one emission of an energy balance stream: either a balance or
// the error that failed it.
type Update struct {
	Date    time.Time
	Mode    Mode
	Balance EnergyBalance
	Err     error
}
