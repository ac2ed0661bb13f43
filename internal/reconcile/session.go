package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zaakiraza/khd-adminPanel-sub000/internal/backendapi"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/metrics"
	"github.com/zaakiraza/khd-adminPanel-sub000/internal/tabular"
)

// Step is the reconciliation workflow position.
type Step string

const (
	StepUpload Step = "upload"
	StepReview Step = "review"
)

var (
	// ErrNoParticipants distinguishes "empty file" from "bad file".
	ErrNoParticipants  = errors.New("no participants found in file")
	ErrSessionNotFound = errors.New("reconciliation session not found")
	ErrSessionActive   = errors.New("a reconciliation for this class and date is already active")
	ErrNotReviewing    = errors.New("session is not in review")
	ErrAlreadyParsed   = errors.New("session already parsed; reset it to upload a new file")
	ErrParseInProgress = errors.New("a parse is already in progress for this session")
	ErrSessionReset    = errors.New("session was reset while parsing")
	ErrUnknownStudent  = errors.New("student is not part of this session")
	ErrInvalidStatus   = errors.New("status must be present, late or absent")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrClassRequired   = errors.New("class id required")
)

// RosterSource supplies enrolled students for a class.
type RosterSource interface {
	Roster(ctx context.Context, classID string) ([]backendapi.Student, error)
	Invalidate(ctx context.Context, classID string)
}

// Recorder persists a finished reconciliation as one atomic write.
type Recorder interface {
	RecordAttendance(ctx context.Context, commit backendapi.CommitRequest) error
}

// Session owns one reconciliation run from upload to commit. Class and date
// are immutable once set; everything else is discarded on reset.
type Session struct {
	ID      string
	ClassID string
	Date    string

	mu           sync.Mutex
	step         Step
	gen          uint64 // bumped on reset so in-flight parses become stale
	parsing      bool
	cancelParse  context.CancelFunc
	participants []Participant
	results      []*MatchResult
	byStudent    map[string]*MatchResult
	unmatched    []string
	lastActivity time.Time
}

// View is the JSON-facing snapshot of a session.
type View struct {
	ID             string         `json:"id"`
	ClassID        string         `json:"classId"`
	Date           string         `json:"date"`
	Step           Step           `json:"step"`
	Participants   int            `json:"participants"`
	Results        []*MatchResult `json:"results,omitempty"`
	UnmatchedNames []string       `json:"unmatchedNames,omitempty"`
}

// Manager is the registry of active sessions. One live session per class and
// date; sessions idle past idleTTL are swept when new ones are created.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byKey    map[string]string

	roster   RosterSource
	recorder Recorder
	idleTTL  time.Duration
}

// NewManager creates a manager backed by a roster source and a recorder.
func NewManager(roster RosterSource, recorder Recorder, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &Manager{
		sessions: make(map[string]*Session),
		byKey:    make(map[string]string),
		roster:   roster,
		recorder: recorder,
		idleTTL:  idleTTL,
	}
}

// Create starts a fresh session in the upload step.
func (m *Manager) Create(classID, date string) (*View, error) {
	if classID == "" {
		return nil, ErrClassRequired
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, ErrInvalidDate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()

	key := classID + "|" + date
	if _, exists := m.byKey[key]; exists {
		return nil, ErrSessionActive
	}
	sess := &Session{
		ID:           uuid.NewString(),
		ClassID:      classID,
		Date:         date,
		step:         StepUpload,
		lastActivity: time.Now(),
	}
	m.sessions[sess.ID] = sess
	m.byKey[key] = sess.ID
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return sess.view(), nil
}

// Get returns a snapshot of a session.
func (m *Manager) Get(id string) (*View, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.viewLocked(), nil
}

// Parse runs the upload → review transition: decode the file, extract
// participants, fetch the roster and match. The decode is cancellable; a
// reset while parsing bumps the session generation and the late result is
// dropped instead of clobbering the fresh session.
func (m *Manager) Parse(ctx context.Context, id, filename string, file io.Reader) (*View, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.step != StepUpload {
		sess.mu.Unlock()
		return nil, ErrAlreadyParsed
	}
	if sess.parsing {
		sess.mu.Unlock()
		return nil, ErrParseInProgress
	}
	sess.parsing = true
	gen := sess.gen
	pctx, cancel := context.WithCancel(ctx)
	sess.cancelParse = cancel
	sess.mu.Unlock()
	defer cancel()
	defer func() {
		sess.mu.Lock()
		sess.parsing = false
		sess.mu.Unlock()
	}()

	participants, err := decodeParticipants(pctx, filename, file)
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	students, err := m.roster.Roster(pctx, sess.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load roster for class %s: %w", sess.ClassID, err)
	}

	outcome := MatchRoster(participants, students)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.gen != gen {
		return nil, ErrSessionReset
	}
	sess.participants = participants
	sess.results = outcome.Results
	sess.unmatched = outcome.UnmatchedNames
	sess.byStudent = make(map[string]*MatchResult, len(outcome.Results))
	for _, r := range outcome.Results {
		sess.byStudent[r.Student.ID] = r
	}
	sess.step = StepReview
	sess.cancelParse = nil
	sess.lastActivity = time.Now()
	return sess.viewLocked(), nil
}

// decodeParticipants runs the file decode in its own goroutine so a session
// reset (which cancels ctx) unblocks the caller even mid-decode.
func decodeParticipants(ctx context.Context, filename string, file io.Reader) ([]Participant, error) {
	type parsed struct {
		participants []Participant
		err          error
	}
	ch := make(chan parsed, 1)
	go func() {
		rows, err := tabular.Read(file, filename)
		if err != nil {
			ch <- parsed{err: err}
			return
		}
		ch <- parsed{participants: ParseParticipants(rows)}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p := <-ch:
		return p.participants, p.err
	}
}

// Override records a reviewer's status decision for one student. Review-only
// self-loop; matching is not re-run.
func (m *Manager) Override(id, studentID string, status Status) (*View, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.step != StepReview {
		return nil, ErrNotReviewing
	}
	r, ok := sess.byStudent[studentID]
	if !ok {
		return nil, ErrUnknownStudent
	}
	s := status
	r.ManualOverride = &s
	sess.lastActivity = time.Now()
	return sess.viewLocked(), nil
}

// Commit submits the effective statuses to the backend and destroys the
// session on success. On failure the session stays in review untouched so
// the reviewer can retry.
func (m *Manager) Commit(ctx context.Context, id string) error {
	sess, err := m.lookup(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.step != StepReview {
		sess.mu.Unlock()
		return ErrNotReviewing
	}
	commit := backendapi.CommitRequest{
		ClassID: sess.ClassID,
		Date:    sess.Date,
		Records: make([]backendapi.AttendanceRecord, 0, len(sess.results)),
	}
	for _, r := range sess.results {
		commit.Records = append(commit.Records, backendapi.AttendanceRecord{
			StudentID: r.Student.ID,
			Status:    string(r.EffectiveStatus()),
		})
		if r.ZoomName == "" {
			continue
		}
		commit.Auxiliary = append(commit.Auxiliary, backendapi.AttendanceDetail{
			StudentID:       r.Student.ID,
			SourceName:      r.ZoomName,
			DurationMinutes: r.DurationMinutes,
			JoinTime:        r.JoinTime,
			LeaveTime:       r.LeaveTime,
		})
	}
	sess.mu.Unlock()

	if err := m.recorder.RecordAttendance(ctx, commit); err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	m.remove(sess)
	return nil
}

// Reset cancels any in-flight parse and returns the session to the upload
// step, discarding participants, results and unmatched names. The cached
// roster for the class is invalidated so a re-run sees fresh enrollment.
func (m *Manager) Reset(ctx context.Context, id string) (*View, error) {
	sess, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.cancelParse != nil {
		sess.cancelParse()
		sess.cancelParse = nil
	}
	sess.gen++
	sess.participants = nil
	sess.results = nil
	sess.byStudent = nil
	sess.unmatched = nil
	sess.step = StepUpload
	sess.lastActivity = time.Now()
	view := sess.viewLocked()
	sess.mu.Unlock()

	m.roster.Invalidate(ctx, sess.ClassID)
	return view, nil
}

// Active returns the number of live sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) lookup(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (m *Manager) remove(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sess.ID)
	delete(m.byKey, sess.ClassID+"|"+sess.Date)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}

// sweepLocked drops sessions idle past the TTL. Called with m.mu held; the
// gauge tracks every registry change, swept sessions included.
func (m *Manager) sweepLocked() {
	cutoff := time.Now().Add(-m.idleTTL)
	for id, sess := range m.sessions {
		sess.mu.Lock()
		idle := sess.lastActivity.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			delete(m.byKey, sess.ClassID+"|"+sess.Date)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
}

func (s *Session) view() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// viewLocked snapshots the session. Called with s.mu held.
func (s *Session) viewLocked() *View {
	return &View{
		ID:             s.ID,
		ClassID:        s.ClassID,
		Date:           s.Date,
		Step:           s.step,
		Participants:   len(s.participants),
		Results:        s.results,
		UnmatchedNames: s.unmatched,
	}
}
