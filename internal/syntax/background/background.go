package background

import (
	"log/slog"
	"time"

	"github.com/dshills/textmodel/internal/engine/document"
	"github.com/dshills/textmodel/internal/event"
	"github.com/dshills/textmodel/internal/syntax/scheduler"
	"github.com/dshills/textmodel/internal/syntax/tokenizer"
)

// Lexer lexes a single line from a start state.
type Lexer interface {
	GetLineTokens(line string, start tokenizer.State) tokenizer.LineTokens
}

// Update reports rows whose tokens were (re)computed.
type Update struct {
	First int
	Last  int
}

// BackgroundTokenizer keeps per-row tokens and end states for a document,
// re-lexing invalidated rows in small time-sliced batches.
//
// All methods must be called from the goroutine that pumps its queue.
type BackgroundTokenizer struct {
	lexer Lexer
	doc   *document.Document
	sub   event.Subscription

	// lines and states are indexed by row. A nil entry is stale. Both may
	// be shorter than the document.
	lines  [][]tokenizer.Token
	states []*tokenizer.State

	// currentLine is the lowest row that may need lexing.
	currentLine int

	queue    *scheduler.Queue
	clock    scheduler.Clock
	deferred *scheduler.Deferred

	startDelay  time.Duration
	resumeDelay time.Duration
	rowQuota    int
	timeBudget  time.Duration

	updates event.Signal[Update]
	logger  *slog.Logger
}

// New creates a background tokenizer using lexer. It does nothing until a
// document is set.
func New(lexer Lexer, opts ...Option) *BackgroundTokenizer {
	b := &BackgroundTokenizer{
		lexer:       lexer,
		clock:       scheduler.RealClock,
		startDelay:  DefaultStartDelay,
		resumeDelay: DefaultResumeDelay,
		rowQuota:    DefaultRowQuota,
		timeBudget:  DefaultTimeBudget,
		logger:      discardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.queue == nil {
		b.queue = scheduler.NewQueue(b.clock)
	}
	b.deferred = scheduler.NewDeferred(b.queue, b.work)
	return b
}

// Queue returns the queue runs are scheduled on.
func (b *BackgroundTokenizer) Queue() *scheduler.Queue {
	return b.queue
}

// Document returns the tracked document.
func (b *BackgroundTokenizer) Document() *document.Document {
	return b.doc
}

// SetDocument tracks doc, dropping all cached rows, and schedules lexing
// from the first row.
func (b *BackgroundTokenizer) SetDocument(doc *document.Document) {
	if b.sub != nil {
		b.sub.Cancel()
		b.sub = nil
	}
	b.doc = doc
	b.reset()
	if doc == nil {
		b.Stop()
		return
	}
	b.sub = doc.OnChange(b.UpdateOnChange)
	b.Start(0)
}

// SetTokenizer swaps the lexer, dropping all cached rows, and schedules
// lexing from the first row.
func (b *BackgroundTokenizer) SetTokenizer(lexer Lexer) {
	b.lexer = lexer
	b.reset()
	if b.doc != nil {
		b.Start(0)
	}
}

func (b *BackgroundTokenizer) reset() {
	b.lines = nil
	b.states = nil
	b.currentLine = 0
}

// OnUpdate subscribes h to update notifications.
func (b *BackgroundTokenizer) OnUpdate(h func(Update)) event.Subscription {
	return b.updates.Subscribe(h)
}

// Running reports whether a run is scheduled.
func (b *BackgroundTokenizer) Running() bool {
	return b.deferred.IsPending()
}

// CurrentLine returns the lowest row that may still need lexing.
func (b *BackgroundTokenizer) CurrentLine() int {
	return b.currentLine
}

// Start moves the lexing cursor back to row, drops cached rows from there
// on and schedules a run if none is pending.
func (b *BackgroundTokenizer) Start(row int) {
	if b.doc == nil {
		return
	}
	b.currentLine = max(0, min(row, b.currentLine, b.doc.Length()))
	if b.currentLine < len(b.lines) {
		clear(b.lines[b.currentLine:])
		b.lines = b.lines[:b.currentLine]
	}
	if b.currentLine < len(b.states) {
		clear(b.states[b.currentLine:])
		b.states = b.states[:b.currentLine]
	}
	b.ScheduleStart()
}

// ScheduleStart schedules a run if none is pending.
func (b *BackgroundTokenizer) ScheduleStart() {
	if b.doc == nil {
		return
	}
	b.deferred.ScheduleIfIdle(b.startDelay)
}

// Stop cancels any scheduled run.
func (b *BackgroundTokenizer) Stop() {
	b.deferred.Cancel()
}

// Close stops tracking the document and drops all state.
func (b *BackgroundTokenizer) Close() {
	b.Stop()
	if b.sub != nil {
		b.sub.Cancel()
		b.sub = nil
	}
	b.reset()
	b.updates.Reset()
}

// UpdateOnChange invalidates the rows touched by delta, keeping the caches
// aligned with the document's rows, and reschedules lexing.
func (b *BackgroundTokenizer) UpdateOnChange(delta document.Delta) {
	startRow := delta.Range.Start.Row
	n := delta.Range.End.Row - startRow

	switch {
	case n == 0:
		b.setLine(startRow, nil)
	case delta.IsRemove():
		b.lines = splice(b.lines, startRow, n+1, 1)
		b.states = splice(b.states, startRow, n+1, 1)
	default:
		b.lines = splice(b.lines, startRow, 1, n+1)
		b.states = splice(b.states, startRow, 1, n+1)
	}

	if b.doc != nil {
		b.currentLine = min(startRow, b.currentLine, b.doc.Length())
	} else {
		b.currentLine = min(startRow, b.currentLine)
	}
	b.Stop()
	b.ScheduleStart()
}

// splice replaces del entries at start with add stale entries.
func splice[T any](s []T, start, del, add int) []T {
	if start >= len(s) {
		return s
	}
	end := min(start+del, len(s))
	out := make([]T, 0, len(s)-(end-start)+add)
	out = append(out, s[:start]...)
	var zero T
	for range add {
		out = append(out, zero)
	}
	return append(out, s[end:]...)
}

// Tokens returns the tokens of row, lexing it now if its cache is stale.
func (b *BackgroundTokenizer) Tokens(row int) []tokenizer.Token {
	if b.doc == nil || row < 0 || row >= b.doc.Length() {
		return nil
	}
	if row < len(b.lines) && b.lines[row] != nil {
		return b.lines[row]
	}
	return b.tokenizeRow(row)
}

// State returns the lexer state at the end of row. If row is where the
// background run would continue, it is lexed first.
func (b *BackgroundTokenizer) State(row int) tokenizer.State {
	if b.doc == nil || row < 0 {
		return tokenizer.Simple(tokenizer.StartState)
	}
	if row == b.currentLine && row < b.doc.Length() {
		b.tokenizeRow(row)
	}
	if s := b.stateAt(row); s != nil {
		return *s
	}
	return tokenizer.Simple(tokenizer.StartState)
}

// Length returns the number of rows in the tracked document.
func (b *BackgroundTokenizer) Length() int {
	if b.doc == nil {
		return 0
	}
	return b.doc.Length()
}

// work is one scheduled run.
func (b *BackgroundTokenizer) work() {
	if b.doc == nil || b.lexer == nil {
		return
	}
	began := b.clock.Now()
	row := b.currentLine
	first, last := row, -1

	for b.valid(row) {
		row++
	}
	n := b.doc.Length()
	processed := 0
	yielded := false
	for row < n {
		b.tokenizeRow(row)
		last = row
		row++
		for b.valid(row) {
			row++
		}
		processed++
		// Yield only once the quota is filled and the budget is spent.
		// A fast lexer finishes small documents in one run.
		if processed%b.rowQuota == 0 && b.clock.Now().Sub(began) > b.timeBudget {
			b.deferred.Schedule(b.resumeDelay)
			yielded = true
			break
		}
	}
	b.currentLine = row

	if processed == 0 {
		return
	}
	b.logger.Debug("background tokenization",
		"first", first, "last", last, "rows", processed, "yielded", yielded)
	b.updates.Emit(Update{First: first, Last: last})
}

func (b *BackgroundTokenizer) tokenizeRow(row int) []tokenizer.Token {
	var prev tokenizer.State
	if s := b.stateAt(row - 1); s != nil {
		prev = *s
	}
	res := b.lexer.GetLineTokens(b.doc.Line(row), prev)

	if old := b.stateAt(row); old == nil || !old.Equal(res.State) {
		st := res.State
		b.setState(row, &st)
		b.setLine(row+1, nil)
		if b.currentLine > row+1 {
			b.currentLine = row + 1
		}
	} else if b.currentLine == row {
		b.currentLine = row + 1
	}

	tokens := res.Tokens
	if tokens == nil {
		tokens = []tokenizer.Token{}
	}
	b.setLine(row, tokens)
	return tokens
}

func (b *BackgroundTokenizer) valid(row int) bool {
	return row >= 0 && row < len(b.lines) && b.lines[row] != nil
}

func (b *BackgroundTokenizer) stateAt(row int) *tokenizer.State {
	if row < 0 || row >= len(b.states) {
		return nil
	}
	return b.states[row]
}

func (b *BackgroundTokenizer) setLine(row int, tokens []tokenizer.Token) {
	if row < 0 {
		return
	}
	if row >= len(b.lines) {
		if tokens == nil {
			return
		}
		b.lines = append(b.lines, make([][]tokenizer.Token, row+1-len(b.lines))...)
	}
	b.lines[row] = tokens
}

func (b *BackgroundTokenizer) setState(row int, s *tokenizer.State) {
	if row >= len(b.states) {
		b.states = append(b.states, make([]*tokenizer.State, row+1-len(b.states))...)
	}
	b.states[row] = s
}
