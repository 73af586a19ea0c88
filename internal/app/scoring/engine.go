// Package scoring computes a concluded round's per-participant point
// breakdowns and ranking. It is pure: same inputs, same output, no writes.
package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mmgclub/movienight/internal/domain"
)

// ErrIncompleteData marks a round whose submissions are not complete enough
// to score. Callers treat it as "not ready yet", not as a fault.
var ErrIncompleteData = errors.New("round data incomplete")

// IncompleteDataError lists exactly what is still missing.
type IncompleteDataError struct {
	Missing []string
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("round data incomplete: %d submissions missing", len(e.Missing))
}

func (e *IncompleteDataError) Unwrap() error { return ErrIncompleteData }

// Entry is a single scoring event with a note meant for the reveal screen.
type Entry struct {
	Category domain.PointCategory
	Value    int
	Note     string
}

// Breakdown is one participant's full result for the round.
type Breakdown struct {
	ParticipantID  domain.ParticipantID
	GuessPoints    int
	KnownPoints    int
	UnseenPoints   int
	LikedPoints    int
	DislikedPoints int
	TotalPoints    int
	AvgRating      float64
	Rank           int
	Winner         bool
	Entries        []Entry
}

// Result holds every breakdown plus the rank ordering (index 0 is rank 1).
type Result struct {
	Breakdowns map[domain.ParticipantID]*Breakdown
	Ranking    []domain.ParticipantID
}

// Compute scores a round from its movies and rating rows.
//
// Every roster member must have a rating row for every movie, and every
// movie must have exactly one IsOwnMovie row identifying its chooser;
// otherwise an *IncompleteDataError is returned and nothing is scored.
func Compute(round domain.Round, movies []domain.Movie, guesses []domain.RatingGuess, weights Weights) (Result, error) {
	roster := sortedRoster(round.Participants)
	sortedMovies := sortMovies(movies)

	byKey := make(map[ratingKey]domain.RatingGuess, len(guesses))
	for _, g := range guesses {
		byKey[ratingKey{g.ParticipantID, g.MovieID}] = g
	}

	names := make(map[domain.ParticipantID]string, len(roster))
	for _, p := range roster {
		names[p.ID] = p.Name
	}

	chooser, missing := resolveChoosers(sortedMovies, roster, byKey, names)
	if len(missing) > 0 {
		return Result{}, &IncompleteDataError{Missing: missing}
	}

	breakdowns := make(map[domain.ParticipantID]*Breakdown, len(roster))
	for _, p := range roster {
		breakdowns[p.ID] = &Breakdown{ParticipantID: p.ID}
	}

	// Guess points: credit the rater for each correctly identified chooser.
	for _, p := range roster {
		b := breakdowns[p.ID]
		for _, m := range sortedMovies {
			g := byKey[ratingKey{p.ID, m.ID}]
			if g.IsOwnMovie || g.GuessedChooserID == nil {
				continue
			}
			if *g.GuessedChooserID == chooser[m.ID] {
				b.addEntry(domain.CategoryGuess, weights.Guess,
					fmt.Sprintf("guessed correctly that %s picked %s", names[chooser[m.ID]], m.Title))
			}
		}
	}

	// Movie points: credit the chooser for how the room received their pick,
	// and record the average rating for tie-breaking.
	for _, m := range sortedMovies {
		owner := chooser[m.ID]
		b := breakdowns[owner]

		var ratingSum, ratingCount int
		for _, p := range roster {
			g := byKey[ratingKey{p.ID, m.ID}]
			ratingSum += g.StarRating
			ratingCount++

			if g.IsOwnMovie {
				continue
			}
			if !g.SeenPreviously {
				b.addEntry(domain.CategoryUnseen, weights.Unseen,
					fmt.Sprintf("%s had never seen %s", names[p.ID], m.Title))
			}
			if g.HeardOf {
				b.addEntry(domain.CategoryKnown, weights.Known,
					fmt.Sprintf("%s had heard of %s", names[p.ID], m.Title))
			}
			// Ratings of 2 and 3 are a deliberate dead zone: no point either way.
			switch {
			case g.StarRating == 1:
				b.addEntry(domain.CategoryDisliked, weights.Disliked,
					fmt.Sprintf("%s hated %s (1 star)", names[p.ID], m.Title))
			case g.StarRating > 3:
				b.addEntry(domain.CategoryLiked, weights.Liked,
					fmt.Sprintf("%s liked %s (%d stars)", names[p.ID], m.Title, g.StarRating))
			}
		}

		if ratingCount > 0 {
			b.AvgRating = float64(ratingSum) / float64(ratingCount)
		}
	}

	ranking := rank(breakdowns)

	return Result{Breakdowns: breakdowns, Ranking: ranking}, nil
}

type ratingKey struct {
	participant domain.ParticipantID
	movie       domain.MovieID
}

func (b *Breakdown) addEntry(cat domain.PointCategory, value int, note string) {
	b.Entries = append(b.Entries, Entry{Category: cat, Value: value, Note: note})
	b.TotalPoints += value
	switch cat {
	case domain.CategoryGuess:
		b.GuessPoints += value
	case domain.CategoryKnown:
		b.KnownPoints += value
	case domain.CategoryUnseen:
		b.UnseenPoints += value
	case domain.CategoryLiked:
		b.LikedPoints += value
	case domain.CategoryDisliked:
		b.DislikedPoints += value
	}
}

// resolveChoosers maps each movie to its chooser via the IsOwnMovie row and
// collects every completeness violation in one pass.
func resolveChoosers(
	movies []domain.Movie,
	roster []domain.Participant,
	byKey map[ratingKey]domain.RatingGuess,
	names map[domain.ParticipantID]string,
) (map[domain.MovieID]domain.ParticipantID, []string) {
	chooser := make(map[domain.MovieID]domain.ParticipantID, len(movies))
	var missing []string

	for _, m := range movies {
		owners := 0
		for _, p := range roster {
			g, ok := byKey[ratingKey{p.ID, m.ID}]
			if !ok {
				missing = append(missing, fmt.Sprintf("%s has not rated %s", names[p.ID], m.Title))
				continue
			}
			if g.IsOwnMovie {
				owners++
				chooser[m.ID] = p.ID
			}
		}
		if owners != 1 {
			missing = append(missing, fmt.Sprintf("%s does not have exactly one owner (got %d)", m.Title, owners))
		}
	}

	return chooser, missing
}

// rank orders participants by total points, then average rating of their own
// movie, both descending. A full tie falls back to ascending participant ID
// so repeated runs always agree.
func rank(breakdowns map[domain.ParticipantID]*Breakdown) []domain.ParticipantID {
	ordered := make([]*Breakdown, 0, len(breakdowns))
	for _, b := range breakdowns {
		ordered = append(ordered, b)
	}

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TotalPoints != ordered[j].TotalPoints {
			return ordered[i].TotalPoints > ordered[j].TotalPoints
		}
		if ordered[i].AvgRating != ordered[j].AvgRating {
			return ordered[i].AvgRating > ordered[j].AvgRating
		}
		return ordered[i].ParticipantID < ordered[j].ParticipantID
	})

	ranking := make([]domain.ParticipantID, len(ordered))
	for i, b := range ordered {
		b.Rank = i + 1
		b.Winner = i == 0
		ranking[i] = b.ParticipantID
	}
	return ranking
}

func sortedRoster(participants []domain.Participant) []domain.Participant {
	roster := make([]domain.Participant, len(participants))
	copy(roster, participants)
	sort.Slice(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })
	return roster
}

func sortMovies(movies []domain.Movie) []domain.Movie {
	sorted := make([]domain.Movie, len(movies))
	copy(sorted, movies)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].WatchedAt.Equal(sorted[j].WatchedAt) {
			return sorted[i].WatchedAt.Before(sorted[j].WatchedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
