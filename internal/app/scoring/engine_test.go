package scoring

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mmgclub/movienight/internal/domain"
)

func TestComputeTwoPlayerRound(t *testing.T) {
	f := newTwoPlayerFixture()

	result, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if err != nil {
		t.Fatalf("expected round to score cleanly, got: %v", err)
	}

	// Ana guessed Brazil's chooser correctly (+2) and Ben's 1-star rating of
	// her movie earns her a disliked point (+1).
	ana := result.Breakdowns[f.ana.ID]
	if ana.TotalPoints != 3 {
		t.Fatalf("ana total: expected 3, got %d", ana.TotalPoints)
	}
	if ana.GuessPoints != 2 || ana.DislikedPoints != 1 {
		t.Fatalf("ana categories wrong: %+v", ana)
	}
	if ana.UnseenPoints != 0 || ana.KnownPoints != 0 || ana.LikedPoints != 0 {
		t.Fatalf("ana should have no unseen/known/liked points: %+v", ana)
	}

	// Ben guessed correctly (+2); Ana had never seen Clue (+1), had heard of
	// it (+1) and rated it five stars (+1).
	ben := result.Breakdowns[f.ben.ID]
	if ben.TotalPoints != 5 {
		t.Fatalf("ben total: expected 5, got %d", ben.TotalPoints)
	}
	if ben.GuessPoints != 2 || ben.UnseenPoints != 1 || ben.KnownPoints != 1 || ben.LikedPoints != 1 {
		t.Fatalf("ben categories wrong: %+v", ben)
	}

	if ben.Rank != 1 || !ben.Winner {
		t.Fatalf("ben should win, got rank %d winner %v", ben.Rank, ben.Winner)
	}
	if ana.Rank != 2 || ana.Winner {
		t.Fatalf("ana should rank second, got rank %d winner %v", ana.Rank, ana.Winner)
	}
	if len(result.Ranking) != 2 || result.Ranking[0] != f.ben.ID {
		t.Fatalf("ranking order wrong: %v", result.Ranking)
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	f := newTwoPlayerFixture()

	first, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if !reflect.DeepEqual(first.Ranking, second.Ranking) {
		t.Fatalf("rankings differ between runs: %v vs %v", first.Ranking, second.Ranking)
	}
	for id, b := range first.Breakdowns {
		if !reflect.DeepEqual(*b, *second.Breakdowns[id]) {
			t.Fatalf("breakdown for %s differs between runs", id)
		}
	}
}

func TestComputeCategorySumLawAndRankTotality(t *testing.T) {
	f := newFourPlayerFixture()

	result, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if err != nil {
		t.Fatalf("expected round to score cleanly, got: %v", err)
	}

	seen := make(map[int]bool)
	for _, b := range result.Breakdowns {
		sum := b.GuessPoints + b.KnownPoints + b.UnseenPoints + b.LikedPoints + b.DislikedPoints
		if b.TotalPoints != sum {
			t.Fatalf("total %d does not equal category sum %d for %s", b.TotalPoints, sum, b.ParticipantID)
		}
		var entrySum int
		for _, e := range b.Entries {
			entrySum += e.Value
		}
		if entrySum != b.TotalPoints {
			t.Fatalf("entry values sum to %d but total is %d for %s", entrySum, b.TotalPoints, b.ParticipantID)
		}
		if seen[b.Rank] {
			t.Fatalf("rank %d assigned twice", b.Rank)
		}
		seen[b.Rank] = true
	}
	for r := 1; r <= len(result.Breakdowns); r++ {
		if !seen[r] {
			t.Fatalf("rank %d never assigned", r)
		}
	}
}

func TestComputeDeadZoneRatings(t *testing.T) {
	f := newTwoPlayerFixture()

	// Rate both movies in the 2-3 dead zone: no liked or disliked points.
	for i := range f.guesses {
		if !f.guesses[i].IsOwnMovie {
			f.guesses[i].StarRating = 3
		}
	}
	for i := range f.guesses {
		if !f.guesses[i].IsOwnMovie && f.guesses[i].MovieID == f.brazil.ID {
			f.guesses[i].StarRating = 2
		}
	}

	result, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if err != nil {
		t.Fatalf("expected round to score cleanly, got: %v", err)
	}

	for _, b := range result.Breakdowns {
		if b.LikedPoints != 0 || b.DislikedPoints != 0 {
			t.Fatalf("dead-zone rating must award nothing, got %+v", b)
		}
	}
}

func TestComputeTieBreakByAverageRating(t *testing.T) {
	f := newTwoPlayerFixture()

	// Remove both correct guesses and the dislike so totals tie on the
	// familiarity points, leaving the average rating to decide.
	for i := range f.guesses {
		f.guesses[i].GuessedChooserID = nil
		f.guesses[i].HeardOf = !f.guesses[i].IsOwnMovie
		f.guesses[i].SeenPreviously = true
		if f.guesses[i].IsOwnMovie {
			f.guesses[i].StarRating = 3
			continue
		}
		switch f.guesses[i].MovieID {
		case f.brazil.ID:
			f.guesses[i].StarRating = 2
		case f.clue.ID:
			f.guesses[i].StarRating = 3
		}
	}

	result, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if err != nil {
		t.Fatalf("expected round to score cleanly, got: %v", err)
	}

	ana := result.Breakdowns[f.ana.ID]
	ben := result.Breakdowns[f.ben.ID]
	if ana.TotalPoints != ben.TotalPoints {
		t.Fatalf("expected tied totals, got %d vs %d", ana.TotalPoints, ben.TotalPoints)
	}
	// Clue averaged higher than Brazil, so Ben takes rank 1.
	if ben.Rank != 1 || ana.Rank != 2 {
		t.Fatalf("tie-break by avg rating failed: ana rank %d, ben rank %d", ana.Rank, ben.Rank)
	}
}

func TestComputeFullTieFallsBackToParticipantID(t *testing.T) {
	f := newTwoPlayerFixture()

	// Identical ratings everywhere: totals and averages both tie.
	for i := range f.guesses {
		f.guesses[i].GuessedChooserID = nil
		f.guesses[i].SeenPreviously = true
		f.guesses[i].HeardOf = false
		f.guesses[i].StarRating = 3
	}

	result, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if err != nil {
		t.Fatalf("expected round to score cleanly, got: %v", err)
	}

	low, high := f.ana.ID, f.ben.ID
	if high < low {
		low, high = high, low
	}
	if result.Ranking[0] != low || result.Ranking[1] != high {
		t.Fatalf("full tie must order by participant id, got %v", result.Ranking)
	}
}

func TestComputeMissingRatingIsIncomplete(t *testing.T) {
	f := newTwoPlayerFixture()
	f.guesses = f.guesses[:len(f.guesses)-1]

	_, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if !errors.Is(err, ErrIncompleteData) {
		t.Fatalf("expected ErrIncompleteData, got: %v", err)
	}

	var incomplete *IncompleteDataError
	if !errors.As(err, &incomplete) || len(incomplete.Missing) == 0 {
		t.Fatalf("expected missing details, got: %v", err)
	}
}

func TestComputeMovieWithoutOwnerIsIncomplete(t *testing.T) {
	f := newTwoPlayerFixture()
	for i := range f.guesses {
		f.guesses[i].IsOwnMovie = false
	}

	_, err := Compute(f.round, f.movies, f.guesses, DefaultWeights())
	if !errors.Is(err, ErrIncompleteData) {
		t.Fatalf("expected ErrIncompleteData, got: %v", err)
	}
}

func TestComputeCustomWeights(t *testing.T) {
	f := newTwoPlayerFixture()

	weights := Weights{Guess: 5, Known: 2, Unseen: 2, Liked: 3, Disliked: 3}
	result, err := Compute(f.round, f.movies, f.guesses, weights)
	if err != nil {
		t.Fatalf("expected round to score cleanly, got: %v", err)
	}

	ana := result.Breakdowns[f.ana.ID]
	if ana.TotalPoints != 5+3 {
		t.Fatalf("ana total with custom weights: expected 8, got %d", ana.TotalPoints)
	}
	ben := result.Breakdowns[f.ben.ID]
	if ben.TotalPoints != 5+2+2+3 {
		t.Fatalf("ben total with custom weights: expected 12, got %d", ben.TotalPoints)
	}
}

// fixture matching the worked example: Ana picked Brazil, Ben picked Clue.
// Ana rates Clue 5 stars, never seen, heard of, guesses Ben. Ben rates
// Brazil 1 star, seen before, not heard of, guesses Ana.
type twoPlayerFixture struct {
	round        domain.Round
	ana, ben     domain.Participant
	brazil, clue domain.Movie
	movies       []domain.Movie
	guesses      []domain.RatingGuess
}

func newTwoPlayerFixture() *twoPlayerFixture {
	base := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	ana := domain.Participant{ID: "01A", Name: "Ana"}
	ben := domain.Participant{ID: "01B", Name: "Ben"}

	round := domain.Round{
		ID:           "R1",
		Number:       1,
		Active:       true,
		StartedAt:    base,
		Participants: []domain.Participant{ana, ben},
	}

	brazil := domain.Movie{ID: "M1", RoundID: round.ID, Title: "Brazil", Year: 1985, WatchedAt: base}
	clue := domain.Movie{ID: "M2", RoundID: round.ID, Title: "Clue", Year: 1985, WatchedAt: base.AddDate(0, 0, 7)}

	guesses := []domain.RatingGuess{
		{ID: "G1", ParticipantID: ana.ID, MovieID: brazil.ID, IsOwnMovie: true, SeenPreviously: true, StarRating: 4},
		{ID: "G2", ParticipantID: ana.ID, MovieID: clue.ID, SeenPreviously: false, HeardOf: true, StarRating: 5, GuessedChooserID: &ben.ID},
		{ID: "G3", ParticipantID: ben.ID, MovieID: brazil.ID, SeenPreviously: true, HeardOf: false, StarRating: 1, GuessedChooserID: &ana.ID},
		{ID: "G4", ParticipantID: ben.ID, MovieID: clue.ID, IsOwnMovie: true, SeenPreviously: true, StarRating: 3},
	}

	return &twoPlayerFixture{
		round:   round,
		ana:     ana,
		ben:     ben,
		brazil:  brazil,
		clue:    clue,
		movies:  []domain.Movie{brazil, clue},
		guesses: guesses,
	}
}

type fourPlayerFixture struct {
	round   domain.Round
	movies  []domain.Movie
	guesses []domain.RatingGuess
}

func newFourPlayerFixture() *fourPlayerFixture {
	base := time.Date(2026, 4, 6, 20, 0, 0, 0, time.UTC)

	people := []domain.Participant{
		{ID: "P1", Name: "Ana"},
		{ID: "P2", Name: "Ben"},
		{ID: "P3", Name: "Cleo"},
		{ID: "P4", Name: "Dan"},
	}

	round := domain.Round{ID: "R2", Number: 2, Active: true, StartedAt: base, Participants: people}

	titles := []string{"Brazil", "Clue", "Tremors", "Sneakers"}
	movies := make([]domain.Movie, len(people))
	for i := range people {
		movies[i] = domain.Movie{
			ID:        domain.MovieID(titles[i]),
			RoundID:   round.ID,
			Title:     titles[i],
			WatchedAt: base.AddDate(0, 0, i*7),
		}
	}

	// Ana identifies every chooser; everyone else misses. Ratings spread
	// across the whole 1..5 range so every category shows up somewhere.
	var guesses []domain.RatingGuess
	for pi, p := range people {
		for mi, m := range movies {
			g := domain.RatingGuess{
				ID:             domain.RatingID(string(p.ID) + "-" + string(m.ID)),
				ParticipantID:  p.ID,
				MovieID:        m.ID,
				StarRating:     (pi+mi)%5 + 1,
				SeenPreviously: pi%2 == 0,
				HeardOf:        mi%2 == 0,
			}
			if pi == mi {
				g.IsOwnMovie = true
			} else {
				guessIdx := (mi + pi) % len(people)
				g.GuessedChooserID = &people[guessIdx].ID
			}
			guesses = append(guesses, g)
		}
	}

	return &fourPlayerFixture{round: round, movies: movies, guesses: guesses}
}
