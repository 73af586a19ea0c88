package domain

import (
	"regexp"
	"strings"
	"time"
)

type (
	RoundID       string
	ParticipantID string
	MovieID       string
	RatingID      string
	ScoreRecordID string
	PointEntryID  string
)

// PointCategory tags an individual scoring event.
type PointCategory string

const (
	CategoryGuess    PointCategory = "guess"
	CategoryKnown    PointCategory = "known"
	CategoryUnseen   PointCategory = "unseen"
	CategoryLiked    PointCategory = "liked"
	CategoryDisliked PointCategory = "disliked"
)

// Round is one full cycle of picking, watching and scoring movies.
// At most one round has Active = true; WinnerID is set only once Finalized.
type Round struct {
	ID           RoundID        `gorm:"column:id;type:char(26);primaryKey"`
	Number       int            `gorm:"column:number;not null;uniqueIndex"`
	Active       bool           `gorm:"column:active;not null;default:false"`
	Finalized    bool           `gorm:"column:finalized;not null;default:false"`
	StartedAt    time.Time      `gorm:"column:started_at;not null"`
	FinishedAt   *time.Time     `gorm:"column:finished_at"`
	WinnerID     *ParticipantID `gorm:"column:winner_id;type:char(26)"`
	Participants []Participant  `gorm:"many2many:round_participants"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

type Participant struct {
	ID        ParticipantID `gorm:"column:id;type:char(26);primaryKey"`
	Name      string        `gorm:"column:name;type:text;not null;uniqueIndex"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
}

// Movie is a single submission inside a round. ChosenByID is a cache filled
// in during round conclusion; before that the chooser is only knowable from
// the IsOwnMovie rating row.
type Movie struct {
	ID         MovieID        `gorm:"column:id;type:char(26);primaryKey"`
	RoundID    RoundID        `gorm:"column:round_id;type:char(26);not null;index"`
	Title      string         `gorm:"column:title;type:text;not null"`
	Year       int            `gorm:"column:year"`
	WatchedAt  time.Time      `gorm:"column:watched_at"`
	Slug       string         `gorm:"column:slug;type:text;not null"`
	ChosenByID *ParticipantID `gorm:"column:chosen_by_id;type:char(26)"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// RatingGuess is one participant's card for one movie: rating, familiarity
// flags and, for movies that are not their own, a guess at the chooser.
type RatingGuess struct {
	ID               RatingID       `gorm:"column:id;type:char(26);primaryKey"`
	ParticipantID    ParticipantID  `gorm:"column:participant_id;type:char(26);not null;uniqueIndex:uniq_rating_participant_movie,priority:1"`
	MovieID          MovieID        `gorm:"column:movie_id;type:char(26);not null;uniqueIndex:uniq_rating_participant_movie,priority:2"`
	IsOwnMovie       bool           `gorm:"column:is_own_movie;not null;default:false"`
	SeenPreviously   bool           `gorm:"column:seen_previously;not null;default:false"`
	HeardOf          bool           `gorm:"column:heard_of;not null;default:false"`
	StarRating       int            `gorm:"column:star_rating;not null;default:3"`
	GuessedChooserID *ParticipantID `gorm:"column:guessed_chooser_id;type:char(26)"`
	Comments         string         `gorm:"column:comments;type:text"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// ScoreRecord holds one participant's finalized totals for one round.
// Conclusion overwrites it in place; it never accumulates across runs.
type ScoreRecord struct {
	ID             ScoreRecordID `gorm:"column:id;type:char(26);primaryKey"`
	RoundID        RoundID       `gorm:"column:round_id;type:char(26);not null;uniqueIndex:uniq_score_round_participant,priority:1"`
	ParticipantID  ParticipantID `gorm:"column:participant_id;type:char(26);not null;uniqueIndex:uniq_score_round_participant,priority:2"`
	GuessPoints    int           `gorm:"column:guess_points;not null;default:0"`
	KnownPoints    int           `gorm:"column:known_points;not null;default:0"`
	UnseenPoints   int           `gorm:"column:unseen_points;not null;default:0"`
	LikedPoints    int           `gorm:"column:liked_points;not null;default:0"`
	DislikedPoints int           `gorm:"column:disliked_points;not null;default:0"`
	TotalPoints    int           `gorm:"column:total_points;not null;default:0"`
	Rank           int           `gorm:"column:rank;not null;default:0"`
	AvgRating      float64       `gorm:"column:avg_rating;not null;default:0"`
	Winner         bool          `gorm:"column:winner;not null;default:false"`
	Finalized      bool          `gorm:"column:finalized;not null;default:false"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// PointEntry is one line of the audit trail behind a ScoreRecord. The whole
// set is deleted and reinserted every time conclusion runs.
type PointEntry struct {
	ID            PointEntryID  `gorm:"column:id;type:char(26);primaryKey"`
	ScoreRecordID ScoreRecordID `gorm:"column:score_record_id;type:char(26);not null;index"`
	Category      PointCategory `gorm:"column:category;type:text;not null"`
	Value         int           `gorm:"column:value;not null"`
	Note          string        `gorm:"column:note;type:text;not null"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
}

// Profile carries a participant's all-time counters. Rebuilt by a full
// rescan of finalized score records, never incremented in place.
type Profile struct {
	ParticipantID  ParticipantID `gorm:"column:participant_id;type:char(26);primaryKey"`
	GuessPoints    int           `gorm:"column:guess_points;not null;default:0"`
	KnownPoints    int           `gorm:"column:known_points;not null;default:0"`
	UnseenPoints   int           `gorm:"column:unseen_points;not null;default:0"`
	LikedPoints    int           `gorm:"column:liked_points;not null;default:0"`
	DislikedPoints int           `gorm:"column:disliked_points;not null;default:0"`
	TrophyPoints   int           `gorm:"column:trophy_points;not null;default:0"`
	RoundsWon      int           `gorm:"column:rounds_won;not null;default:0"`
	Admin          bool          `gorm:"column:admin;not null;default:false"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (p Profile) TotalPoints() int {
	return p.GuessPoints + p.KnownPoints + p.UnseenPoints + p.LikedPoints + p.DislikedPoints
}

// PartyState is the shared reveal cursor: the current step and the earliest
// moment another advance may take effect. Stored as a single keyed record.
type PartyState struct {
	StepIndex int       `json:"step_index"`
	NextTime  time.Time `json:"next_time"`
}

// Presence records that a participant's reveal page pinged recently.
type Presence struct {
	ParticipantID ParticipantID `json:"participant_id"`
	LastPing      time.Time     `json:"last_ping"`
}

func (Round) TableName() string { return "rounds" }

func (Participant) TableName() string { return "participants" }

func (Movie) TableName() string { return "movies" }

func (RatingGuess) TableName() string { return "rating_guesses" }

func (ScoreRecord) TableName() string { return "score_records" }

func (PointEntry) TableName() string { return "point_entries" }

func (Profile) TableName() string { return "profiles" }

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a movie slug from its title the same way every time:
// lower-cased, runs of non-alphanumerics collapsed to single dashes.
func Slugify(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}
