// Package docsync keeps the practice history in step with the document store.
//
// A save resolves the stored revision, writes the current snapshot as an
// update, and falls back to creating a new document when the update is
// rejected. Local state always wins: nothing is merged.
package docsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/verte-zerg/kyudo/internal/model"
	"github.com/verte-zerg/kyudo/internal/state"
	"github.com/verte-zerg/kyudo/internal/store"
)

// DefaultDocID is the well-known id of the practice document.
const DefaultDocID = "mydoc"

// ErrWriteFailure marks a save that could not write any document.
var ErrWriteFailure = errors.New("save failed")

// Store is the document store protocol the engine relies on.
type Store interface {
	Get(ctx context.Context, id string) (store.Document, error)
	Put(ctx context.Context, doc store.Document) (string, error)
	Post(ctx context.Context, doc store.Document) (string, string, error)
}

// Outcome describes which branch a save finished in.
type Outcome int

const (
	// Failed means nothing was written.
	Failed Outcome = iota
	// Updated means the existing document received a new revision.
	Updated
	// Created means the document was created under the target id.
	Created
	// Forked means an update was rejected and a new document was created.
	Forked
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case Created:
		return "created"
	case Forked:
		return "forked"
	default:
		return "failed"
	}
}

// Result reports a finished save.
type Result struct {
	ID      string
	Rev     string
	Outcome Outcome
	Err     error
}

// OK reports whether the save wrote a document.
func (r Result) OK() bool {
	return r.Err == nil && r.Outcome != Failed
}

// Options configures an Engine.
type Options struct {
	// DocID is the well-known document id. Empty means DefaultDocID.
	DocID string
	// ForkOnAnyFailure creates a new document on every rejected fetch or
	// update, not only on revision conflicts.
	ForkOnAnyFailure bool
	// Verbose logs the bulk export of every saved snapshot.
	Verbose bool
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
}

// Engine loads and saves a state container.
type Engine struct {
	store     Store
	state     *state.Container
	docID     string
	forkOnAny bool
	verbose   bool
	log       *log.Logger

	// saveMu queues overlapping saves so they never race each other for the
	// same revision.
	saveMu   sync.Mutex
	inflight sync.WaitGroup
}

// New constructs an engine for the container.
func New(st Store, c *state.Container, opts Options) *Engine {
	docID := opts.DocID
	if docID == "" {
		docID = DefaultDocID
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		store:     st,
		state:     c,
		docID:     docID,
		forkOnAny: opts.ForkOnAnyFailure,
		verbose:   opts.Verbose,
		log:       logger,
	}
}

// DocID returns the well-known document id.
func (e *Engine) DocID() string {
	return e.docID
}

// Load replaces the container state with the stored document. It looks up
// the container's known id, or the well-known id when there is none. Any
// failure leaves an empty, unidentified state. It reports whether a document
// was loaded.
func (e *Engine) Load(ctx context.Context) bool {
	id := e.state.Identity().ID
	if id == "" {
		id = e.docID
	}
	doc, err := e.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Printf("load %s: %v", id, err)
		}
		e.state.Replace(model.State{})
		return false
	}
	st, err := model.DecodeState(doc.Body)
	if err != nil {
		e.log.Printf("load %s: %v", id, err)
		e.state.Replace(model.State{})
		return false
	}
	st.Identity = model.Identity{ID: doc.ID, Rev: doc.Rev}
	e.state.Replace(st)
	return true
}

// SaveAsync starts a save in the background. The channel delivers exactly
// one Result and is then closed.
func (e *Engine) SaveAsync(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer close(out)
		out <- e.Save(ctx)
	}()
	return out
}

// Wait blocks until every save started with SaveAsync has finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// Save writes the current state and records the new identity on success.
func (e *Engine) Save(ctx context.Context) Result {
	if e.verbose {
		e.Bulk(model.ExportSessions(e.state.Snapshot()))
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	res := e.save(ctx)
	if res.OK() {
		e.state.SetIdentity(model.Identity{ID: res.ID, Rev: res.Rev})
		e.log.Printf("saved %s at %s (%s)", res.ID, res.Rev, res.Outcome)
	} else {
		e.log.Printf("save failed: %v", res.Err)
	}
	return res
}

func (e *Engine) save(ctx context.Context) Result {
	ident := e.state.Identity()
	if !ident.Persisted() {
		return e.create(ctx, e.docID)
	}

	remote, err := e.store.Get(ctx, ident.ID)
	switch {
	case err == nil:
		return e.update(ctx, ident.ID, remote.Rev)
	case errors.Is(err, store.ErrNotFound):
		return e.create(ctx, ident.ID)
	case e.forkOnAny:
		e.log.Printf("fetch %s: %v; creating a new document", ident.ID, err)
		return e.fork(ctx)
	default:
		return failed(fmt.Errorf("fetch %s: %w", ident.ID, err))
	}
}

func (e *Engine) update(ctx context.Context, id, rev string) Result {
	body, err := e.encode(id, rev)
	if err != nil {
		return failed(err)
	}
	newRev, err := e.store.Put(ctx, store.Document{ID: id, Rev: rev, Body: body})
	if err == nil {
		return Result{ID: id, Rev: newRev, Outcome: Updated}
	}
	if e.shouldFork(err) {
		e.log.Printf("update %s rejected: %v; creating a new document", id, err)
		return e.fork(ctx)
	}
	return failed(fmt.Errorf("update %s: %w", id, err))
}

func (e *Engine) create(ctx context.Context, id string) Result {
	body, err := e.encode(id, "")
	if err != nil {
		return failed(err)
	}
	newID, rev, err := e.store.Post(ctx, store.Document{ID: id, Body: body})
	if err == nil {
		return Result{ID: newID, Rev: rev, Outcome: Created}
	}
	if errors.Is(err, store.ErrConflict) {
		e.log.Printf("create %s rejected: %v; creating a new document", id, err)
		return e.fork(ctx)
	}
	return failed(fmt.Errorf("create %s: %w", id, err))
}

func (e *Engine) fork(ctx context.Context) Result {
	body, err := e.encode("", "")
	if err != nil {
		return failed(err)
	}
	id, rev, err := e.store.Post(ctx, store.Document{Body: body})
	if err != nil {
		return failed(fmt.Errorf("create new document: %w", err))
	}
	return Result{ID: id, Rev: rev, Outcome: Forked}
}

func (e *Engine) shouldFork(err error) bool {
	if e.forkOnAny {
		return true
	}
	return errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound)
}

// encode snapshots the container at write time, so a save always carries
// every set recorded before the write, including ones recorded after the
// save was started.
func (e *Engine) encode(id, rev string) ([]byte, error) {
	st := e.state.Snapshot()
	st.Identity = model.Identity{ID: id, Rev: rev}
	return model.EncodeState(st)
}

func failed(err error) Result {
	return Result{Outcome: Failed, Err: fmt.Errorf("%w: %w", ErrWriteFailure, err)}
}
