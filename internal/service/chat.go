package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

var newUUID = uuid.NewString

const recordTimeout = 5 * time.Second

// Turn outcomes, used in logs and the audit table
const (
	OutcomeEmptyInput      = "empty_input"
	OutcomeRefused         = "refused"
	OutcomeFollowUpDetail  = "follow_up_detail"
	OutcomeFollowUpAmbig   = "follow_up_ambiguous"
	OutcomeAboveBudget     = "closest_above_budget"
	OutcomeNoMatch         = "no_match"
	OutcomeGenerated       = "generated"
	OutcomeFallback        = "fallback"
	OutcomeInternalFailure = "internal_error"
)

// Stream event names
const (
	EventStart      = "start"
	EventSafety     = "safety"
	EventIntent     = "intent"
	EventCandidates = "candidates"
	EventThinking   = "thinking"
	EventResponse   = "response"
	EventDone       = "done"
)

// PhoneCatalog is the read-only catalog the pipeline ranks over
type PhoneCatalog interface {
	All() []model.Phone
	Get(id string) (model.Phone, bool)
}

// TurnRecorder persists a summary of each finished turn
type TurnRecorder interface {
	RecordTurn(ctx context.Context, rec TurnRecord) error
}

// TurnRecord is the audit summary of one turn
type TurnRecord struct {
	TurnID         string
	Query          string
	Mode           model.ChatMode
	Outcome        string
	CandidateIDs   []string
	UsedCatalogIDs []string
	Fallback       bool
	Latency        time.Duration
}

// EventCallback receives pipeline progress for streaming clients
type EventCallback func(event string, data any) error

// TurnResult is the single answer for one turn.
// Err is set for empty input and internal failures; Response is always usable.
type TurnResult struct {
	Response model.ChatResponse
	Err      *Error
	Outcome  string
	Fallback bool
}

// ChatOptions bounds the per-turn work
type ChatOptions struct {
	CandidateLimit        int
	HistoryWindow         int
	HistoryMessageMaxChar int
	GenerationTimeout     time.Duration
}

// ChatOptionsFromConfig maps the env config onto ChatOptions
func ChatOptionsFromConfig(cfg config.ChatConfig) ChatOptions {
	return ChatOptions{
		CandidateLimit:        cfg.CandidateLimit,
		HistoryWindow:         cfg.HistoryWindow,
		HistoryMessageMaxChar: cfg.HistoryMessageMaxChar,
		GenerationTimeout:     cfg.GenerationTimeout,
	}
}

// ChatService runs the deterministic turn pipeline around an optional model
type ChatService struct {
	catalog      PhoneCatalog
	safety       *SafetyClassifier
	intent       *IntentParser
	modes        *ModeClassifier
	ranker       *Ranker
	conversation *ConversationResolver
	fallback     *FallbackSynthesizer
	generator    Generator
	recorder     TurnRecorder
	opts         ChatOptions
	log          *zap.Logger
}

// NewChatService wires the pipeline. generator and recorder may be nil.
func NewChatService(
	catalog PhoneCatalog,
	patterns *config.Patterns,
	ranker *Ranker,
	generator Generator,
	recorder TurnRecorder,
	opts ChatOptions,
	log *zap.Logger,
) (*ChatService, error) {
	if catalog == nil || len(catalog.All()) == 0 {
		return nil, errors.New("service: catalog must not be empty")
	}
	if patterns == nil {
		return nil, errors.New("service: patterns must not be nil")
	}
	if ranker == nil {
		ranker = NewRanker(DefaultRankingConfig())
	}
	if generator == nil {
		generator = NewDisabledGenerator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = DefaultCandidateLimit
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 20 * time.Second
	}

	return &ChatService{
		catalog:      catalog,
		safety:       NewSafetyClassifier(patterns),
		intent:       NewIntentParser(patterns),
		modes:        NewModeClassifier(patterns),
		ranker:       ranker,
		conversation: NewConversationResolver(patterns),
		fallback:     NewFallbackSynthesizer(patterns),
		generator:    generator,
		recorder:     recorder,
		opts:         opts,
		log:          log,
	}, nil
}

// Turn answers the newest user message of history
func (s *ChatService) Turn(ctx context.Context, history []model.ChatMessage) TurnResult {
	return s.run(ctx, history, nil)
}

// TurnStream is Turn with progress events. Emit errors stop further events but not the turn.
func (s *ChatService) TurnStream(ctx context.Context, history []model.ChatMessage, emit EventCallback) TurnResult {
	return s.run(ctx, history, emit)
}

// turnState carries one turn through the pipeline
type turnState struct {
	id         string
	query      string
	mode       model.ChatMode
	candidates []model.Phone
	emit       func(event string, data any)
	onThinking func(string) error
}

func (s *ChatService) run(ctx context.Context, history []model.ChatMessage, emit EventCallback) (res TurnResult) {
	start := time.Now()
	st := &turnState{
		id:    newUUID(),
		query: LastUserMessage(history),
		mode:  model.ModeRecommend,
	}
	st.emit, st.onThinking = s.emitter(st.id, emit)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			s.log.Error("turn panicked", zap.String("turn_id", st.id), zap.Error(err))
			res = TurnResult{
				Response: model.ChatResponse{
					Mode:           model.ModeClarify,
					Message:        MessageServerError,
					UsedCatalogIDs: []string{},
					Error:          err.Error(),
				},
				Err:     newError(ErrorInternal, "turn_panic", err),
				Outcome: OutcomeInternalFailure,
			}
		}

		res.Response.TurnID = st.id
		if res.Response.UsedCatalogIDs == nil {
			res.Response.UsedCatalogIDs = []string{}
		}
		s.finish(st, res, time.Since(start))
	}()

	st.emit(EventStart, eventData{"turnId": st.id})
	return s.pipeline(ctx, history, st)
}

// pipeline runs every stage in order; any stage may end the turn early
func (s *ChatService) pipeline(ctx context.Context, history []model.ChatMessage, st *turnState) TurnResult {
	if st.query == "" {
		return TurnResult{
			Response: clarify(MessageEmptyInput),
			Err:      newError(ErrorInvalidInput, "empty_message", nil),
			Outcome:  OutcomeEmptyInput,
		}
	}

	decision := s.safety.Evaluate(st.query)
	st.emit(EventSafety, decision)
	if decision.Refused {
		return TurnResult{
			Response: model.ChatResponse{
				Mode:           model.ModeRefuse,
				Message:        decision.SafeReply,
				UsedCatalogIDs: []string{},
			},
			Outcome: OutcomeRefused + ":" + string(decision.Reason),
		}
	}

	all := s.catalog.All()
	st.mode = s.modes.Infer(st.query)
	intent := s.intent.Parse(st.query)
	ranked := s.ranker.Rank(all, intent, s.opts.CandidateLimit)
	st.candidates = model.PhonesOf(ranked)
	st.emit(EventIntent, eventData{"intent": intent, "mode": st.mode})

	if s.conversation.IsFollowUp(st.query) {
		prior := s.knownPhones(LastUsedCatalogIDs(history))
		switch {
		case len(prior) == 1:
			st.candidates = prior
			return TurnResult{Response: DetailResponse(prior[0]), Outcome: OutcomeFollowUpDetail}
		case len(prior) > 1:
			st.candidates = prior
			return TurnResult{Response: shortlistClarify(prior), Outcome: OutcomeFollowUpAmbig}
		default:
			if p, ok := ResolveByName(all, st.query); ok {
				st.candidates = []model.Phone{p}
			}
		}
	}

	if pair, ok := ExtractVsPair(st.query); ok {
		if phones, ok := ResolvePair(all, pair); ok {
			st.candidates = phones
		}
	}

	st.emit(EventCandidates, candidateEvent(st.candidates, ranked))

	if len(st.candidates) == 0 && st.mode != model.ModeExplain {
		if intent.Budget != nil && len(intent.Brands) > 0 {
			if p, ok := closestAboveBudget(all, intent); ok {
				return TurnResult{Response: aboveBudgetClarify(p, intent), Outcome: OutcomeAboveBudget}
			}
		}
		return TurnResult{Response: clarify(MessageNoMatch), Outcome: OutcomeNoMatch}
	}

	resp, fellBack := s.generate(ctx, history, st)
	resp = s.postProcess(resp, st)

	outcome := OutcomeGenerated
	if fellBack {
		outcome = OutcomeFallback
	}
	return TurnResult{Response: resp, Outcome: outcome, Fallback: fellBack}
}

// generate makes the single model attempt; any failure yields the fallback answer
func (s *ChatService) generate(ctx context.Context, history []model.ChatMessage, st *turnState) (model.ChatResponse, bool) {
	resp, err := s.tryGenerate(ctx, history, st)
	if err == nil {
		return resp, false
	}

	fields := []zap.Field{zap.String("turn_id", st.id), zap.String("provider", s.generator.Name()), zap.Error(err)}
	if errors.Is(err, ErrModelDisabled) {
		s.log.Debug("model disabled, using fallback", fields...)
	} else {
		s.log.Warn("model answer rejected, using fallback", fields...)
	}
	return s.fallback.Synthesize(st.mode, st.query, st.candidates), true
}

func (s *ChatService) tryGenerate(ctx context.Context, history []model.ChatMessage, st *turnState) (model.ChatResponse, error) {
	if !s.generator.IsEnabled() {
		return model.ChatResponse{}, ErrModelDisabled
	}

	recent := RecentHistory(priorMessages(history), s.opts.HistoryWindow, s.opts.HistoryMessageMaxChar)
	prompt, err := BuildGroundingPayload(st.query, st.mode, recent, st.candidates).Render()
	if err != nil {
		return model.ChatResponse{}, err
	}
	req := GenerationRequest{System: BuildSystemPrompt(), Prompt: prompt}

	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	var raw string
	if st.onThinking != nil {
		raw, err = s.generator.GenerateStream(genCtx, req, st.onThinking)
	} else {
		raw, err = s.generator.Generate(genCtx, req)
	}
	if err != nil {
		return model.ChatResponse{}, err
	}

	return ParseModelResponse(raw, st.candidates)
}

// postProcess applies single-pick truncation, id backfill and explain id clearing
func (s *ChatService) postProcess(resp model.ChatResponse, st *turnState) model.ChatResponse {
	if resp.Mode == model.ModeRecommend && len(resp.Products) > 1 && s.modes.WantsSinglePick(st.query) {
		resp.Products = resp.Products[:1]
		resp.Comparison = nil
		resp.UsedCatalogIDs = []string{resp.Products[0].ID}
	}
	if len(resp.UsedCatalogIDs) == 0 {
		resp.UsedCatalogIDs = model.IDsOf(st.candidates)
	}
	if resp.Mode == model.ModeExplain {
		resp.UsedCatalogIDs = []string{}
	}
	return resp
}

// knownPhones maps ids to catalog items, dropping ids the catalog no longer has
func (s *ChatService) knownPhones(ids []string) []model.Phone {
	phones := make([]model.Phone, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := s.catalog.Get(id); ok {
			phones = append(phones, p)
		}
	}
	return phones
}

// finish logs the turn, emits the final events and hands the record to the recorder
func (s *ChatService) finish(st *turnState, res TurnResult, took time.Duration) {
	st.emit(EventResponse, res.Response)
	st.emit(EventDone, eventData{"outcome": res.Outcome, "fallback": res.Fallback, "took_ms": took.Milliseconds()})

	s.log.Info("turn completed",
		zap.String("turn_id", st.id),
		zap.String("mode", string(res.Response.Mode)),
		zap.String("outcome", res.Outcome),
		zap.Int("candidates", len(st.candidates)),
		zap.Bool("fallback", res.Fallback),
		zap.Duration("took", took))

	if s.recorder == nil || res.Outcome == OutcomeEmptyInput {
		return
	}

	rec := TurnRecord{
		TurnID:         st.id,
		Query:          st.query,
		Mode:           res.Response.Mode,
		Outcome:        res.Outcome,
		CandidateIDs:   model.IDsOf(st.candidates),
		UsedCatalogIDs: res.Response.UsedCatalogIDs,
		Fallback:       res.Fallback,
		Latency:        took,
	}

	// Record turn (non-blocking)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.recorder.RecordTurn(ctx, rec); err != nil {
			s.log.Warn("failed to record turn", zap.String("turn_id", rec.TurnID), zap.Error(err))
		}
	}()
}

// emitter wraps the caller's callback so a failed write silences later events
func (s *ChatService) emitter(turnID string, cb EventCallback) (func(string, any), func(string) error) {
	if cb == nil {
		return func(string, any) {}, nil
	}

	broken := false
	emit := func(event string, data any) {
		if broken {
			return
		}
		if err := cb(event, data); err != nil {
			broken = true
			s.log.Debug("stream client gone", zap.String("turn_id", turnID), zap.Error(err))
		}
	}
	onThinking := func(text string) error {
		emit(EventThinking, eventData{"text": text})
		return nil
	}
	return emit, onThinking
}

// eventData is a small JSON object for event payloads
type eventData = map[string]any

// priorMessages drops the trailing user message, which is sent separately as the query
func priorMessages(history []model.ChatMessage) []model.ChatMessage {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return history[:i]
		}
	}
	return history
}

func candidateEvent(candidates []model.Phone, ranked []model.RankedCandidate) []model.SearchResult {
	scores := make(map[string]model.RankedCandidate, len(ranked))
	for _, r := range ranked {
		scores[r.Phone.ID] = r
	}

	out := make([]model.SearchResult, 0, len(candidates))
	for _, p := range candidates {
		r := scores[p.ID]
		out = append(out, model.SearchResult{
			ID:      p.ID,
			Title:   p.Title(),
			Price:   utils.FormatINR(p.Price),
			Score:   roundScore(r.Score),
			Reasons: r.Reasons,
		})
	}
	return out
}

// closestAboveBudget returns the cheapest phone that satisfies the brand and OS
// preferences but costs more than the budget
func closestAboveBudget(items []model.Phone, intent model.ParsedIntent) (model.Phone, bool) {
	matching := FilterPhones(items, model.ParsedIntent{Brands: intent.Brands, OSPreference: intent.OSPreference})
	var (
		closest model.Phone
		found   bool
	)
	for _, p := range matching {
		if p.Price <= *intent.Budget {
			continue
		}
		if !found || p.Price < closest.Price {
			closest, found = p, true
		}
	}
	return closest, found
}

func clarify(message string) model.ChatResponse {
	return model.ChatResponse{
		Mode:           model.ModeClarify,
		Message:        message,
		UsedCatalogIDs: []string{},
	}
}

func aboveBudgetClarify(p model.Phone, intent model.ParsedIntent) model.ChatResponse {
	msg := fmt.Sprintf(
		"I couldn't find any %s phone within %s. The closest option above your budget is the %s at %s. Would you like details on it, or should I look at other brands?",
		strings.Join(intent.Brands, "/"),
		utils.FormatINR(*intent.Budget),
		p.Title(),
		utils.FormatINR(p.Price),
	)
	return model.ChatResponse{
		Mode:           model.ModeClarify,
		Message:        msg,
		Products:       []model.ProductCard{ProductCardOf(p)},
		UsedCatalogIDs: []string{p.ID},
	}
}

func shortlistClarify(phones []model.Phone) model.ChatResponse {
	names := make([]string, len(phones))
	for i, p := range phones {
		names[i] = fmt.Sprintf("%d) %s (%s)", i+1, p.Title(), utils.FormatINR(p.Price))
	}
	return model.ChatResponse{
		Mode:           model.ModeClarify,
		Message:        "Which one would you like to know more about? " + strings.Join(names, ", "),
		Products:       cardsOf(phones),
		UsedCatalogIDs: model.IDsOf(phones),
	}
}
