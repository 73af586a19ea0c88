package domain

import (
	"context"
	"time"
)

type RoundRepository interface {
	Create(ctx context.Context, r Round) error
	Update(ctx context.Context, r Round) error
	FindByID(ctx context.Context, id RoundID) (Round, error)
	FindByNumber(ctx context.Context, number int) (Round, error)
	ActiveRound(ctx context.Context) (Round, error)
	List(ctx context.Context) ([]Round, error)
}

type ParticipantRepository interface {
	Create(ctx context.Context, p Participant) error
	FindByID(ctx context.Context, id ParticipantID) (Participant, error)
	List(ctx context.Context) ([]Participant, error)
}

type MovieRepository interface {
	Create(ctx context.Context, m Movie) error
	FindByID(ctx context.Context, id MovieID) (Movie, error)
	ListByRound(ctx context.Context, roundID RoundID) ([]Movie, error)
	SetChosenBy(ctx context.Context, id MovieID, chooser ParticipantID) error
}

type RatingRepository interface {
	Upsert(ctx context.Context, rg RatingGuess) error
	FindByParticipantAndMovie(ctx context.Context, participantID ParticipantID, movieID MovieID) (RatingGuess, error)
	ListByMovie(ctx context.Context, movieID MovieID) ([]RatingGuess, error)
	ListByRound(ctx context.Context, roundID RoundID) ([]RatingGuess, error)
}

type ScoreRepository interface {
	Upsert(ctx context.Context, rec ScoreRecord) (ScoreRecord, error)
	FindByRoundAndParticipant(ctx context.Context, roundID RoundID, participantID ParticipantID) (ScoreRecord, error)
	ListByRound(ctx context.Context, roundID RoundID) ([]ScoreRecord, error)
	ListFinalizedByParticipant(ctx context.Context, participantID ParticipantID) ([]ScoreRecord, error)
	ReplaceEntries(ctx context.Context, recordID ScoreRecordID, entries []PointEntry) error
	ListEntries(ctx context.Context, recordID ScoreRecordID) ([]PointEntry, error)
}

type ProfileRepository interface {
	FindByParticipant(ctx context.Context, id ParticipantID) (Profile, error)
	Save(ctx context.Context, p Profile) error
	List(ctx context.Context) ([]Profile, error)
}

// PartyStateStore owns the single shared reveal cursor. Get on a store that
// was never written returns the zero state, not ErrNotFound.
type PartyStateStore interface {
	Get(ctx context.Context) (PartyState, error)
	Set(ctx context.Context, state PartyState) error
}

// PresenceStore keeps short-lived "who is watching" heartbeats.
type PresenceStore interface {
	Ping(ctx context.Context, id ParticipantID, at time.Time) error
	ListActive(ctx context.Context) ([]Presence, error)
}

// PollLimiter throttles the party poll endpoint per caller.
type PollLimiter interface {
	Allow(ctx context.Context, id ParticipantID) error
}

type Clock interface {
	Now() time.Time
}
