package party

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mmgclub/movienight/internal/domain"
)

func TestAdvanceMovesCursorAndSetsPacing(t *testing.T) {
	deps := newPartyDeps()
	service := deps.newService()

	if err := service.Advance(context.Background(), deps.adminID, 3); err != nil {
		t.Fatalf("expected advance to succeed, got: %v", err)
	}

	if deps.state.state.StepIndex != 3 {
		t.Fatalf("cursor should be at 3, got %d", deps.state.state.StepIndex)
	}
	wantNext := deps.baseTime.Add(2 * time.Second)
	if !deps.state.state.NextTime.Equal(wantNext) {
		t.Fatalf("next time should be now+delay (%v), got %v", wantNext, deps.state.state.NextTime)
	}
	if len(deps.presence.pings) != 1 || deps.presence.pings[0] != deps.adminID {
		t.Fatalf("advance should refresh the admin's presence, pings: %v", deps.presence.pings)
	}
}

func TestAdvanceRejectsBackwardStep(t *testing.T) {
	deps := newPartyDeps()
	deps.state.state = domain.PartyState{StepIndex: 4, NextTime: deps.baseTime}
	service := deps.newService()

	err := service.Advance(context.Background(), deps.adminID, 2)
	if !errors.Is(err, ErrStaleStep) {
		t.Fatalf("backward step should be stale, got: %v", err)
	}
	if deps.state.state.StepIndex != 4 {
		t.Fatalf("cursor must not move on a stale advance, got %d", deps.state.state.StepIndex)
	}
}

func TestAdvanceAcceptsRepeatedStep(t *testing.T) {
	deps := newPartyDeps()
	deps.state.state = domain.PartyState{StepIndex: 4, NextTime: deps.baseTime}
	service := deps.newService()

	// Two admins racing to the same step: the second submit is harmless.
	if err := service.Advance(context.Background(), deps.adminID, 4); err != nil {
		t.Fatalf("same-step advance should be accepted, got: %v", err)
	}
	wantNext := deps.baseTime.Add(2 * time.Second)
	if !deps.state.state.NextTime.Equal(wantNext) {
		t.Fatalf("pacing should still be pushed out, got %v", deps.state.state.NextTime)
	}
}

func TestAdvanceRequiresAdmin(t *testing.T) {
	deps := newPartyDeps()
	service := deps.newService()

	err := service.Advance(context.Background(), deps.viewerID, 1)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("viewer should be denied, got: %v", err)
	}

	err = service.Advance(context.Background(), domain.ParticipantID("stranger"), 1)
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("unknown caller should be denied, got: %v", err)
	}
}

func TestPollReturnsStateAndRefreshesPresence(t *testing.T) {
	deps := newPartyDeps()
	deps.state.state = domain.PartyState{StepIndex: 2, NextTime: deps.baseTime.Add(5 * time.Second)}
	service := deps.newService()

	snapshot, err := service.Poll(context.Background(), deps.viewerID)
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if snapshot.StepIndex != 2 {
		t.Fatalf("snapshot step should be 2, got %d", snapshot.StepIndex)
	}
	if !snapshot.ServerTime.Equal(deps.baseTime) {
		t.Fatalf("server time should be the clock time, got %v", snapshot.ServerTime)
	}
	if !snapshot.NextTime.Equal(deps.baseTime.Add(5 * time.Second)) {
		t.Fatalf("future next time must pass through untouched, got %v", snapshot.NextTime)
	}
	if len(deps.presence.pings) != 1 || deps.presence.pings[0] != deps.viewerID {
		t.Fatalf("poll should refresh the caller's presence, pings: %v", deps.presence.pings)
	}
}

func TestPollClampsStaleNextTime(t *testing.T) {
	deps := newPartyDeps()
	deps.state.state = domain.PartyState{StepIndex: 1, NextTime: deps.baseTime.Add(-time.Minute)}
	service := deps.newService()

	snapshot, err := service.Poll(context.Background(), deps.viewerID)
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if snapshot.NextTime.Before(snapshot.ServerTime) {
		t.Fatalf("next time must never be in the past: next %v server %v", snapshot.NextTime, snapshot.ServerTime)
	}
	if !snapshot.NextTime.Equal(deps.baseTime) {
		t.Fatalf("stale next time should clamp to now, got %v", snapshot.NextTime)
	}
}

func TestPollSortsWatchers(t *testing.T) {
	deps := newPartyDeps()
	deps.presence.active = []domain.Presence{
		{ParticipantID: "01C", LastPing: deps.baseTime},
		{ParticipantID: "01A", LastPing: deps.baseTime},
		{ParticipantID: "01B", LastPing: deps.baseTime},
	}
	service := deps.newService()

	snapshot, err := service.Poll(context.Background(), deps.viewerID)
	if err != nil {
		t.Fatalf("poll failed: %v", err)
	}

	if len(snapshot.Watchers) != 3 {
		t.Fatalf("expected 3 watchers, got %d", len(snapshot.Watchers))
	}
	for i, want := range []domain.ParticipantID{"01A", "01B", "01C"} {
		if snapshot.Watchers[i].ParticipantID != want {
			t.Fatalf("watchers out of order at %d: got %s, want %s", i, snapshot.Watchers[i].ParticipantID, want)
		}
	}
}

func TestGateRedirectsOnlyDuringReveal(t *testing.T) {
	deps := newPartyDeps()
	service := deps.newService()

	// Round not finalized yet: no redirect.
	gated, err := service.Gate(context.Background(), deps.round.ID)
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if gated {
		t.Fatal("an unfinalized round must not gate")
	}

	deps.round.Finalized = true
	if err := deps.rounds.Update(context.Background(), deps.round); err != nil {
		t.Fatalf("failed to finalize round: %v", err)
	}

	// Reveal in progress (step within the movie count): redirect.
	deps.state.state = domain.PartyState{StepIndex: 1, NextTime: deps.baseTime}
	gated, err = service.Gate(context.Background(), deps.round.ID)
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if !gated {
		t.Fatal("mid-reveal results must gate viewers into the party")
	}

	// Reveal over (cursor past the last movie): results are free to read.
	deps.state.state = domain.PartyState{StepIndex: 3, NextTime: deps.baseTime}
	gated, err = service.Gate(context.Background(), deps.round.ID)
	if err != nil {
		t.Fatalf("gate failed: %v", err)
	}
	if gated {
		t.Fatal("a finished reveal must not gate")
	}
}

func TestGateUnknownRound(t *testing.T) {
	deps := newPartyDeps()
	service := deps.newService()

	_, err := service.Gate(context.Background(), domain.RoundID("missing"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestStatusNames(t *testing.T) {
	cases := []struct {
		step   int
		movies int
		want   StateName
	}{
		{0, 2, StateNotStarted},
		{-1, 2, StateNotStarted},
		{1, 2, StateInProgress},
		{2, 2, StateInProgress},
		{3, 2, StateComplete},
	}
	for _, c := range cases {
		if got := Status(c.step, c.movies); got != c.want {
			t.Fatalf("Status(%d, %d) = %q, want %q", c.step, c.movies, got, c.want)
		}
	}
}

type partyDependencies struct {
	rounds   *inMemoryRoundRepo
	movies   *inMemoryMovieRepo
	profiles *inMemoryProfileRepo
	state    *inMemoryPartyStore
	presence *recordingPresenceStore
	clock    *staticClock
	baseTime time.Time

	round    domain.Round
	adminID  domain.ParticipantID
	viewerID domain.ParticipantID
}

func newPartyDeps() *partyDependencies {
	base := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	adminID := domain.ParticipantID("01A")
	viewerID := domain.ParticipantID("01B")

	round := domain.Round{
		ID:     "R1",
		Number: 1,
		Participants: []domain.Participant{
			{ID: adminID, Name: "Ana"},
			{ID: viewerID, Name: "Ben"},
		},
	}

	deps := &partyDependencies{
		rounds:   newInMemoryRoundRepo(),
		movies:   newInMemoryMovieRepo(),
		profiles: newInMemoryProfileRepo(),
		state:    &inMemoryPartyStore{},
		presence: &recordingPresenceStore{},
		clock:    &staticClock{now: base},
		baseTime: base,
		round:    round,
		adminID:  adminID,
		viewerID: viewerID,
	}

	ctx := context.Background()
	_ = deps.rounds.Create(ctx, round)
	_ = deps.movies.Create(ctx, domain.Movie{ID: "M1", RoundID: round.ID, Title: "Brazil"})
	_ = deps.movies.Create(ctx, domain.Movie{ID: "M2", RoundID: round.ID, Title: "Clue"})
	_ = deps.profiles.Save(ctx, domain.Profile{ParticipantID: adminID, Admin: true})
	_ = deps.profiles.Save(ctx, domain.Profile{ParticipantID: viewerID})

	return deps
}

func (d *partyDependencies) newService() *Service {
	return NewService(d.rounds, d.movies, d.profiles, d.state, d.presence, d.clock, 2*time.Second)
}

type inMemoryRoundRepo struct {
	mu   sync.Mutex
	data map[domain.RoundID]domain.Round
}

func newInMemoryRoundRepo() *inMemoryRoundRepo {
	return &inMemoryRoundRepo{data: make(map[domain.RoundID]domain.Round)}
}

func (r *inMemoryRoundRepo) Create(_ context.Context, round domain.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[round.ID] = round
	return nil
}

func (r *inMemoryRoundRepo) Update(_ context.Context, round domain.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[round.ID]; !ok {
		return domain.ErrNotFound
	}
	r.data[round.ID] = round
	return nil
}

func (r *inMemoryRoundRepo) FindByID(_ context.Context, id domain.RoundID) (domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	round, ok := r.data[id]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return round, nil
}

func (r *inMemoryRoundRepo) FindByNumber(_ context.Context, number int) (domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, round := range r.data {
		if round.Number == number {
			return round, nil
		}
	}
	return domain.Round{}, domain.ErrNotFound
}

func (r *inMemoryRoundRepo) ActiveRound(_ context.Context) (domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, round := range r.data {
		if round.Active {
			return round, nil
		}
	}
	return domain.Round{}, domain.ErrNotFound
}

func (r *inMemoryRoundRepo) List(_ context.Context) ([]domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Round, 0, len(r.data))
	for _, round := range r.data {
		result = append(result, round)
	}
	return result, nil
}

type inMemoryMovieRepo struct {
	mu   sync.Mutex
	data map[domain.MovieID]domain.Movie
}

func newInMemoryMovieRepo() *inMemoryMovieRepo {
	return &inMemoryMovieRepo{data: make(map[domain.MovieID]domain.Movie)}
}

func (r *inMemoryMovieRepo) Create(_ context.Context, m domain.Movie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[m.ID] = m
	return nil
}

func (r *inMemoryMovieRepo) FindByID(_ context.Context, id domain.MovieID) (domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.data[id]
	if !ok {
		return domain.Movie{}, domain.ErrNotFound
	}
	return m, nil
}

func (r *inMemoryMovieRepo) ListByRound(_ context.Context, roundID domain.RoundID) ([]domain.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Movie
	for _, m := range r.data {
		if m.RoundID == roundID {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *inMemoryMovieRepo) SetChosenBy(_ context.Context, id domain.MovieID, chooser domain.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.ChosenByID = &chooser
	r.data[id] = m
	return nil
}

type inMemoryProfileRepo struct {
	mu   sync.Mutex
	data map[domain.ParticipantID]domain.Profile
}

func newInMemoryProfileRepo() *inMemoryProfileRepo {
	return &inMemoryProfileRepo{data: make(map[domain.ParticipantID]domain.Profile)}
}

func (r *inMemoryProfileRepo) FindByParticipant(_ context.Context, id domain.ParticipantID) (domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.Profile{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *inMemoryProfileRepo) Save(_ context.Context, p domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.ParticipantID] = p
	return nil
}

func (r *inMemoryProfileRepo) List(_ context.Context) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Profile, 0, len(r.data))
	for _, p := range r.data {
		result = append(result, p)
	}
	return result, nil
}

type inMemoryPartyStore struct {
	mu    sync.Mutex
	state domain.PartyState
}

func (s *inMemoryPartyStore) Get(_ context.Context) (domain.PartyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *inMemoryPartyStore) Set(_ context.Context, state domain.PartyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

type recordingPresenceStore struct {
	mu     sync.Mutex
	pings  []domain.ParticipantID
	active []domain.Presence
}

func (s *recordingPresenceStore) Ping(_ context.Context, id domain.ParticipantID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pings = append(s.pings, id)
	return nil
}

func (s *recordingPresenceStore) ListActive(_ context.Context) ([]domain.Presence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.Presence, len(s.active))
	copy(result, s.active)
	return result, nil
}

type staticClock struct {
	now time.Time
}

func (s *staticClock) Now() time.Time {
	return s.now
}
