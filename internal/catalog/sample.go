package catalog

import (
	"time"

	"github.com/cinemarket/market-engine/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SampleMovies is a small offline catalog of well-known TMDB titles.
var SampleMovies = []model.MovieAttributes{
	{ID: 27205, Title: "Inception", PosterPath: "/oYuLEt3zVCKq57qu2F8dT7NIa6f.jpg", Popularity: 92.1, VoteAverage: 8.4, VoteCount: 36000, GenreID: 28, ReleaseDate: date(2010, 7, 15), Budget: 160_000_000, Revenue: 825_532_764},
	{ID: 550, Title: "Fight Club", PosterPath: "/pB8BM7pdSp6B6Ih7QZ4DrQ3PmJK.jpg", Popularity: 61.4, VoteAverage: 8.4, VoteCount: 29000, GenreID: 18, ReleaseDate: date(1999, 10, 15), Budget: 63_000_000, Revenue: 100_853_753},
	{ID: 603, Title: "The Matrix", PosterPath: "/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg", Popularity: 78.9, VoteAverage: 8.2, VoteCount: 25000, GenreID: 28, ReleaseDate: date(1999, 3, 30), Budget: 63_000_000, Revenue: 463_517_383},
	{ID: 157336, Title: "Interstellar", PosterPath: "/gEU2QniE6E77NI6lCU6MxlNBvIx.jpg", Popularity: 140.2, VoteAverage: 8.4, VoteCount: 34000, GenreID: 12, ReleaseDate: date(2014, 11, 5), Budget: 165_000_000, Revenue: 701_729_206},
	{ID: 693134, Title: "Dune: Part Two", PosterPath: "/1pdfLvkbY9ohJlCjQH2CZjjYVvJ.jpg", Popularity: 480.6, VoteAverage: 8.2, VoteCount: 5800, GenreID: 878, ReleaseDate: date(2024, 2, 27), Budget: 190_000_000, Revenue: 711_844_358},
	{ID: 346698, Title: "Barbie", PosterPath: "/iuFNMS8U5cb6xfzi51Dbkovj7vM.jpg", Popularity: 210.3, VoteAverage: 7.0, VoteCount: 9000, GenreID: 35, ReleaseDate: date(2023, 7, 19), Budget: 145_000_000, Revenue: 1_445_638_421},
	{ID: 493922, Title: "Hereditary", PosterPath: "/p9fmuz2Oj3HtEJEqbIwkFGUhVXD.jpg", Popularity: 45.7, VoteAverage: 7.3, VoteCount: 8000, GenreID: 27, ReleaseDate: date(2018, 6, 7), Budget: 10_000_000, Revenue: 82_800_000},
}

// NewSampleCatalog returns a MemoryCatalog loaded with SampleMovies.
func NewSampleCatalog() *MemoryCatalog {
	return NewMemoryCatalog(SampleMovies...)
}
