// Package httpapi exposes the REST handlers and translates HTTP requests
// into the game, conclusion and party services.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmgclub/movienight/internal/app/conclusion"
	"github.com/mmgclub/movienight/internal/app/game"
	"github.com/mmgclub/movienight/internal/app/party"
	"github.com/mmgclub/movienight/internal/domain"
	"github.com/mmgclub/movienight/internal/platform/ratelimit"
)

// participantHeader carries the caller identity. Authentication proper sits
// in front of this service; the header is trusted as-is.
const participantHeader = "X-Participant-ID"

// GameService is the slice of the game service the handlers consume.
type GameService interface {
	ListRounds(ctx context.Context) ([]domain.Round, error)
	GetRound(ctx context.Context, id domain.RoundID) (domain.Round, []domain.Movie, error)
	ActiveRound(ctx context.Context) (domain.Round, error)
	SubmitRating(ctx context.Context, callerID domain.ParticipantID, movieID domain.MovieID, form game.RatingForm) error
	Results(ctx context.Context, roundID domain.RoundID) ([]game.ResultRow, error)
	Members(ctx context.Context) ([]game.Member, error)
}

// ConcludeService finalizes rounds.
type ConcludeService interface {
	Conclude(ctx context.Context, roundID domain.RoundID, callerID domain.ParticipantID) (conclusion.Outcome, error)
}

// PartyService drives the synchronized reveal.
type PartyService interface {
	Advance(ctx context.Context, callerID domain.ParticipantID, newStep int) error
	Poll(ctx context.Context, callerID domain.ParticipantID) (party.Snapshot, error)
	Gate(ctx context.Context, roundID domain.RoundID) (bool, error)
}

// API bundles the HTTP handlers with the services and the poll limiter.
type API struct {
	game     GameService
	conclude ConcludeService
	party    PartyService
	limiter  domain.PollLimiter
	logger   *slog.Logger
}

func New(gameSvc GameService, concludeSvc ConcludeService, partySvc PartyService, limiter domain.PollLimiter, logger *slog.Logger) *API {
	if limiter == nil {
		limiter = ratelimit.NewNoop()
	}
	return &API{game: gameSvc, conclude: concludeSvc, party: partySvc, limiter: limiter, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	// Routes stay centralized so tests and alternative servers reuse them.
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/rounds", a.listRounds)
	mux.HandleFunc("/rounds/", a.handleRoundDetails)
	mux.HandleFunc("/party", a.handlePartyPoll)
	mux.HandleFunc("/party/advance", a.handlePartyAdvance)
	mux.HandleFunc("/movies/", a.handleMovieDetails)
	mux.HandleFunc("/members", a.listMembers)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) listRounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not supported", http.StatusMethodNotAllowed)
		return
	}

	rounds, err := a.game.ListRounds(r.Context())
	if err != nil {
		a.logger.Error("failed to list rounds", "err", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rounds)
}

func (a *API) handleRoundDetails(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/rounds/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	id := domain.RoundID(parts[0])

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		a.getRound(w, r, id)
	case len(parts) == 2 && parts[1] == "results" && r.Method == http.MethodGet:
		a.getResults(w, r, id)
	case len(parts) == 2 && parts[1] == "conclude" && r.Method == http.MethodPost:
		a.concludeRound(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

type roundResponse struct {
	Round  domain.Round   `json:"round"`
	Movies []domain.Movie `json:"movies"`
}

func (a *API) getRound(w http.ResponseWriter, r *http.Request, id domain.RoundID) {
	round, movies, err := a.game.GetRound(r.Context(), id)
	if err != nil {
		a.logger.Error("failed to load round", "err", err, "round", id)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, roundResponse{Round: round, Movies: movies})
}

// getResults serves a finalized round's scores, unless the reveal party is
// still running; then the caller is redirected to the party endpoint so
// everyone sees the results at the same pace.
func (a *API) getResults(w http.ResponseWriter, r *http.Request, id domain.RoundID) {
	gated, err := a.party.Gate(r.Context(), id)
	if err != nil {
		a.logger.Error("failed to evaluate party gate", "err", err, "round", id)
		respondError(w, err)
		return
	}
	if gated {
		respondJSON(w, http.StatusOK, map[string]bool{"redirect_to_party": true})
		return
	}

	rows, err := a.game.Results(r.Context(), id)
	if err != nil {
		a.logger.Error("failed to load results", "err", err, "round", id)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, rows)
}

type concludeResponse struct {
	Status  conclusion.Status      `json:"status"`
	Missing []string               `json:"missing,omitempty"`
	Winner  domain.ParticipantID   `json:"winner,omitempty"`
	Ranking []domain.ParticipantID `json:"ranking,omitempty"`
}

func (a *API) concludeRound(w http.ResponseWriter, r *http.Request, id domain.RoundID) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}

	outcome, err := a.conclude.Conclude(r.Context(), id, callerID)
	if err != nil {
		a.logger.Warn("conclude failed", "err", err, "round", id, "caller", callerID)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, concludeResponse{
		Status:  outcome.Status,
		Missing: outcome.Missing,
		Winner:  outcome.Winner,
		Ranking: outcome.Ranking,
	})
	a.logger.Info("conclude handled", "round", id, "status", outcome.Status)
}

func (a *API) handlePartyPoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not supported", http.StatusMethodNotAllowed)
		return
	}

	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}

	if err := a.limiter.Allow(r.Context(), callerID); err != nil {
		a.logger.Warn("party poll throttled", "caller", callerID)
		respondError(w, err)
		return
	}

	snapshot, err := a.party.Poll(r.Context(), callerID)
	if err != nil {
		a.logger.Error("party poll failed", "err", err, "caller", callerID)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

type advanceRequest struct {
	Step int `json:"step"`
}

func (a *API) handlePartyAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not supported", http.StatusMethodNotAllowed)
		return
	}

	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.logger.Warn("invalid payload on party advance", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if err := a.party.Advance(r.Context(), callerID, req.Step); err != nil {
		a.logger.Warn("party advance rejected", "err", err, "caller", callerID, "step", req.Step)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"step": req.Step})
}

type ratingRequest struct {
	IsOwnMovie       bool   `json:"is_own_movie"`
	SeenPreviously   bool   `json:"seen_previously"`
	HeardOf          bool   `json:"heard_of"`
	StarRating       int    `json:"star_rating"`
	GuessedChooserID string `json:"guessed_chooser_id"`
	Comments         string `json:"comments"`
}

func (a *API) handleMovieDetails(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/movies/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "rating" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	a.submitRating(w, r, domain.MovieID(parts[0]))
}

func (a *API) submitRating(w http.ResponseWriter, r *http.Request, movieID domain.MovieID) {
	callerID, ok := a.caller(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.logger.Warn("invalid payload on rating submit", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	form := game.RatingForm{
		IsOwnMovie:     req.IsOwnMovie,
		SeenPreviously: req.SeenPreviously,
		HeardOf:        req.HeardOf,
		StarRating:     req.StarRating,
		Comments:       req.Comments,
	}
	if req.GuessedChooserID != "" {
		guess := domain.ParticipantID(req.GuessedChooserID)
		form.GuessedChooserID = &guess
	}

	if err := a.game.SubmitRating(r.Context(), callerID, movieID, form); err != nil {
		a.logger.Warn("rating rejected", "err", err, "caller", callerID, "movie", movieID)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}

func (a *API) listMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not supported", http.StatusMethodNotAllowed)
		return
	}

	members, err := a.game.Members(r.Context())
	if err != nil {
		a.logger.Error("failed to list members", "err", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, members)
}

// caller pulls the participant identity from the request header. Absence is
// answered directly with 401.
func (a *API) caller(w http.ResponseWriter, r *http.Request) (domain.ParticipantID, bool) {
	id := strings.TrimSpace(r.Header.Get(participantHeader))
	if id == "" {
		http.Error(w, "missing participant header", http.StatusUnauthorized)
		return "", false
	}
	return domain.ParticipantID(id), true
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, game.ErrInvalidRating):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrNotParticipant):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrRoundClosed):
		status = http.StatusConflict
	case errors.Is(err, game.ErrRoundNotFinalized):
		status = http.StatusConflict
	case errors.Is(err, party.ErrStaleStep):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		status = http.StatusTooManyRequests
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}
