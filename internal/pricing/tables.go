package pricing

// TMDB genre identifiers.
const (
	GenreAction      = 28
	GenreAdventure   = 12
	GenreAnimation   = 16
	GenreComedy      = 35
	GenreCrime       = 80
	GenreDocumentary = 99
	GenreDrama       = 18
	GenreFamily      = 10751
	GenreFantasy     = 14
	GenreHistory     = 36
	GenreHorror      = 27
	GenreMusic       = 10402
	GenreMystery     = 9648
	GenreRomance     = 10749
	GenreSciFi       = 878
	GenreTVMovie     = 10770
	GenreThriller    = 53
	GenreWar         = 10752
	GenreWestern     = 37
)

var genreMultipliers = map[int]float64{
	GenreAction:      1.20,
	GenreAdventure:   1.15,
	GenreAnimation:   1.10,
	GenreComedy:      1.00,
	GenreCrime:       0.95,
	GenreDocumentary: 0.70,
	GenreDrama:       0.90,
	GenreFamily:      1.05,
	GenreFantasy:     1.10,
	GenreHistory:     0.80,
	GenreHorror:      0.90,
	GenreMusic:       0.85,
	GenreMystery:     0.95,
	GenreRomance:     0.90,
	GenreSciFi:       1.15,
	GenreTVMovie:     0.60,
	GenreThriller:    1.00,
	GenreWar:         0.85,
	GenreWestern:     0.75,
}

// seasonalMultipliers is indexed by calendar month, January first.
var seasonalMultipliers = map[int][12]float64{
	GenreAction:    {0.90, 0.90, 0.95, 1.00, 1.15, 1.20, 1.20, 1.10, 0.95, 0.90, 1.00, 1.05},
	GenreAdventure: {0.90, 0.90, 0.95, 1.00, 1.15, 1.20, 1.20, 1.10, 0.95, 0.90, 1.00, 1.10},
	GenreSciFi:     {0.90, 0.90, 0.95, 1.00, 1.10, 1.20, 1.20, 1.10, 0.95, 0.95, 1.00, 1.05},
	GenreAnimation: {0.95, 0.95, 1.00, 1.00, 1.05, 1.15, 1.20, 1.10, 0.90, 0.90, 1.10, 1.20},
	GenreFamily:    {0.95, 0.95, 1.00, 1.00, 1.05, 1.15, 1.20, 1.10, 0.90, 0.90, 1.10, 1.20},
	GenreHorror:    {0.95, 0.90, 0.90, 0.90, 0.90, 0.95, 1.00, 1.00, 1.05, 1.25, 1.00, 0.90},
	GenreRomance:   {1.00, 1.25, 1.00, 0.95, 0.95, 0.95, 0.95, 0.95, 0.95, 0.95, 1.00, 1.10},
	GenreDrama:     {1.05, 1.05, 0.95, 0.95, 0.90, 0.90, 0.90, 0.95, 1.05, 1.10, 1.15, 1.20},
	GenreComedy:    {0.95, 1.00, 1.00, 1.00, 1.05, 1.10, 1.10, 1.05, 0.95, 0.95, 1.00, 1.05},
}

func genreMultiplier(genreID int) float64 {
	if m, ok := genreMultipliers[genreID]; ok {
		return m
	}
	return 1.0
}

func seasonalMultiplier(genreID int, month int) float64 {
	table, ok := seasonalMultipliers[genreID]
	if !ok || month < 1 || month > 12 {
		return 1.0
	}
	return table[month-1]
}
