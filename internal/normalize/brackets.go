package normalize

// IBGE population size classes used for faixa_populacional.
const (
	BracketUpTo20k    = "até 20 mil"
	Bracket20kTo50k   = "20 a 50 mil"
	Bracket50kTo100k  = "50 a 100 mil"
	Bracket100kTo500k = "100 a 500 mil"
	BracketAbove500k  = "acima de 500 mil"
)

// PopulationBracket classifies a municipality by inhabitants. Returns "" for
// a non-positive population.
func PopulationBracket(pop int64) string {
	switch {
	case pop <= 0:
		return ""
	case pop <= 20_000:
		return BracketUpTo20k
	case pop <= 50_000:
		return Bracket20kTo50k
	case pop <= 100_000:
		return Bracket50kTo100k
	case pop <= 500_000:
		return Bracket100kTo500k
	}
	return BracketAbove500k
}
