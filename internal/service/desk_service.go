package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/board"
	"github.com/freeeve/orderdesk/internal/engine"
	"github.com/freeeve/orderdesk/internal/model"
	"github.com/freeeve/orderdesk/internal/order"
	"github.com/freeeve/orderdesk/internal/regions"
	"github.com/freeeve/orderdesk/internal/render"
	"github.com/freeeve/orderdesk/internal/repository"
	"github.com/freeeve/orderdesk/internal/selection"
)

var (
	ErrUnknownParty  = errors.New("unknown party")
	ErrUnknownRegion = errors.New("unknown region")
)

// DeskService runs one interaction cycle per operator action: resolve the
// click, step the selection machine, write orders to the engine, re-read
// the board and re-render the map. Actions are serialised end to end.
type DeskService struct {
	eng         engine.Engine
	index       *regions.Index
	reader      *board.Reader
	book        *order.Book
	machine     *selection.Machine
	compositor  *render.Compositor
	base        image.Image
	interaction selection.Interaction
	journal     repository.Journal
	broadcaster Broadcaster

	mu      sync.Mutex
	sel     selection.Selection
	png     []byte
	version uint64
	last    model.DeskView
}

// NewDeskService creates a DeskService. journal and broadcaster may be nil.
func NewDeskService(
	eng engine.Engine,
	index *regions.Index,
	base image.Image,
	interaction selection.Interaction,
	journal repository.Journal,
	broadcaster Broadcaster,
) *DeskService {
	if journal == nil {
		journal = repository.NopJournal{}
	}
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	book := order.NewBook(eng)
	return &DeskService{
		eng:         eng,
		index:       index,
		reader:      board.NewReader(eng, index),
		book:        book,
		machine:     selection.NewMachine(eng, book),
		compositor:  render.NewCompositor(index),
		base:        base,
		interaction: interaction,
		journal:     journal,
		broadcaster: broadcaster,
	}
}

// Regions returns the region index in use.
func (s *DeskService) Regions() *regions.Index {
	return s.index
}

// step is what an action produced besides the next selection.
type step struct {
	message string
	kind    string
	emitted string
	entries []model.JournalEntry
}

type action func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error)

// Click resolves a pixel to the nearest region and feeds it to the machine.
func (s *DeskService) Click(ctx context.Context, x, y int) (model.DeskView, error) {
	return s.do(ctx, "click", func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error) {
		r := s.index.Resolve(image.Pt(x, y))
		log.Debug().Int("x", x).Int("y", y).Str("region", r.Name).Msg("Click resolved")
		return s.choose(ctx, sel, snap, r.Name)
	})
}

// ChooseRegion feeds a region picked by name, as from a menu.
func (s *DeskService) ChooseRegion(ctx context.Context, name string) (model.DeskView, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	return s.do(ctx, "choose", func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error) {
		if !s.index.Contains(name) {
			return sel, step{}, fmt.Errorf("%w: %s", ErrUnknownRegion, name)
		}
		return s.choose(ctx, sel, snap, name)
	})
}

func (s *DeskService) choose(ctx context.Context, sel selection.Selection, snap *board.Snapshot, region string) (selection.Selection, step, error) {
	next, out, err := s.machine.Choose(ctx, sel, snap, region)
	if err != nil {
		return next, step{}, err
	}
	if out.Emitted {
		return next, emitted(out), nil
	}
	switch next.State {
	case selection.UnitSelected:
		return next, step{message: fmt.Sprintf("Selected %s (%s)", next.Unit.ID(), next.Unit.Owner), kind: model.MessageInfo}, nil
	case selection.AwaitingConvoyTarget:
		return next, step{message: fmt.Sprintf("Convoying %s; choose its destination", next.Carried.ID()), kind: model.MessageInfo}, nil
	}
	return next, step{}, nil
}

// Hold orders the selected unit to hold.
func (s *DeskService) Hold(ctx context.Context) (model.DeskView, error) {
	return s.do(ctx, "hold", func(ctx context.Context, sel selection.Selection, _ *board.Snapshot) (selection.Selection, step, error) {
		next, out, err := s.machine.Hold(ctx, sel)
		if err != nil {
			return next, step{}, err
		}
		return next, emitted(out), nil
	})
}

// BeginMove switches the selected unit back to move construction.
func (s *DeskService) BeginMove(ctx context.Context) (model.DeskView, error) {
	return s.do(ctx, "move", func(_ context.Context, sel selection.Selection, _ *board.Snapshot) (selection.Selection, step, error) {
		next, err := s.machine.BeginMove(sel)
		if err != nil {
			return next, step{}, err
		}
		return next, step{message: "Choose a destination for " + next.Unit.ID(), kind: model.MessageInfo}, nil
	})
}

// BeginSupport waits for the unit the selected unit should support.
func (s *DeskService) BeginSupport(ctx context.Context) (model.DeskView, error) {
	return s.do(ctx, "support", func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error) {
		next, err := s.machine.BeginSupport(ctx, sel, snap)
		if err != nil {
			return next, step{}, err
		}
		return next, step{message: "Choose the unit " + next.Unit.ID() + " supports", kind: model.MessageInfo}, nil
	})
}

// BeginConvoy waits for the army to carry and then its destination.
func (s *DeskService) BeginConvoy(ctx context.Context) (model.DeskView, error) {
	return s.do(ctx, "convoy", func(_ context.Context, sel selection.Selection, _ *board.Snapshot) (selection.Selection, step, error) {
		next, err := s.machine.BeginConvoy(sel)
		if err != nil {
			return next, step{}, err
		}
		return next, step{message: "Choose the army " + next.Unit.ID() + " convoys", kind: model.MessageInfo}, nil
	})
}

// Cancel clears the selection.
func (s *DeskService) Cancel(ctx context.Context) (model.DeskView, error) {
	return s.do(ctx, "cancel", func(_ context.Context, sel selection.Selection, _ *board.Snapshot) (selection.Selection, step, error) {
		return s.machine.Cancel(sel), step{message: "Selection cleared", kind: model.MessageInfo}, nil
	})
}

// DeleteOrder removes the pending order for one unit.
func (s *DeskService) DeleteOrder(ctx context.Context, party, unit string) (model.DeskView, error) {
	p := engine.NormalizeParty(party)
	unitID := order.IdentityOf(unit)
	return s.do(ctx, "delete", func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error) {
		if err := checkParty(snap, p); err != nil {
			return sel, step{}, err
		}
		if _, err := s.book.Delete(ctx, p, unitID); err != nil {
			return sel, step{}, err
		}
		log.Info().Str("party", string(p)).Str("unit", unitID).Msg("Order deleted")
		return sel, step{
			message: "Deleted order for " + unitID,
			kind:    model.MessageOK,
			entries: []model.JournalEntry{{Kind: model.JournalDelete, Party: string(p), Unit: unitID}},
		}, nil
	})
}

// EnterOrders replaces a party's orders with free text, one order per line.
func (s *DeskService) EnterOrders(ctx context.Context, party, text string) (model.DeskView, error) {
	p := engine.NormalizeParty(party)
	return s.do(ctx, "enter", func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error) {
		if err := checkParty(snap, p); err != nil {
			return sel, step{}, err
		}
		orders, err := s.book.ReplaceAll(ctx, p, text)
		if err != nil {
			return sel, step{}, err
		}
		log.Info().Str("party", string(p)).Int("count", len(orders)).Msg("Orders replaced")
		return sel, step{
			message: fmt.Sprintf("Set %d orders for %s", len(orders), p),
			kind:    model.MessageOK,
			entries: []model.JournalEntry{{Kind: model.JournalReplace, Party: string(p), Detail: strings.Join(orders, "; ")}},
		}, nil
	})
}

// ClearOrders removes every pending order for a party.
func (s *DeskService) ClearOrders(ctx context.Context, party string) (model.DeskView, error) {
	p := engine.NormalizeParty(party)
	return s.do(ctx, "clear", func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error) {
		if err := checkParty(snap, p); err != nil {
			return sel, step{}, err
		}
		if err := s.book.Clear(ctx, p); err != nil {
			return sel, step{}, err
		}
		log.Info().Str("party", string(p)).Msg("Orders cleared")
		return sel, step{
			message: "Cleared orders for " + string(p),
			kind:    model.MessageOK,
			entries: []model.JournalEntry{{Kind: model.JournalClear, Party: string(p)}},
		}, nil
	})
}

// Process asks the engine to resolve the turn. The selection is cleared
// whether or not the engine succeeds.
func (s *DeskService) Process(ctx context.Context) (model.DeskView, error) {
	return s.do(ctx, "process", func(ctx context.Context, sel selection.Selection, snap *board.Snapshot) (selection.Selection, step, error) {
		next := s.machine.TurnProcessed(sel)
		if err := s.eng.Process(ctx); err != nil {
			return next, step{}, err
		}
		log.Info().Str("from", snap.Phase).Msg("Turn processed")
		return next, step{
			message: "Turn processed",
			kind:    model.MessageOK,
			entries: []model.JournalEntry{{Kind: model.JournalProcess, Detail: "from " + snap.Phase}},
		}, nil
	})
}

// Reset starts a new game on the engine.
func (s *DeskService) Reset(ctx context.Context) (model.DeskView, error) {
	return s.do(ctx, "reset", func(ctx context.Context, _ selection.Selection, _ *board.Snapshot) (selection.Selection, step, error) {
		if err := s.eng.Reset(ctx); err != nil {
			return selection.Selection{}, step{}, err
		}
		log.Info().Msg("Game reset")
		return selection.Selection{}, step{
			message: "New game started",
			kind:    model.MessageOK,
			entries: []model.JournalEntry{{Kind: model.JournalReset}},
		}, nil
	})
}

// View re-reads the board and returns the current view.
func (s *DeskService) View(ctx context.Context) (model.DeskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, err := s.refresh(ctx)
	if err != nil {
		return s.failed(err), err
	}
	return view, nil
}

// Image returns the most recently rendered map as PNG, rendering first if
// nothing has been rendered yet.
func (s *DeskService) Image(ctx context.Context) ([]byte, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.png == nil {
		if _, err := s.refresh(ctx); err != nil {
			return nil, 0, err
		}
	}
	return s.png, s.version, nil
}

// Selection returns a copy of the current selection.
func (s *DeskService) Selection() selection.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// do runs one action against a fresh snapshot, then refreshes, journals and
// broadcasts. The returned view is valid even when err is non-nil.
func (s *DeskService) do(ctx context.Context, name string, fn action) (model.DeskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.reader.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Str("action", name).Msg("Failed to read board")
		return s.failed(err), err
	}

	s.sel, _ = s.machine.Reconcile(s.sel, snap)
	next, st, actErr := fn(ctx, s.sel, snap)
	if engine.IsRejection(actErr) {
		next = selection.Selection{}
	}
	s.sel = next
	if actErr != nil {
		st = s.describeError(name, actErr)
	} else if st.emitted != "" {
		log.Info().Str("order", st.emitted).Msg("Order submitted")
	}

	view, err := s.refresh(ctx)
	if err != nil {
		log.Error().Err(err).Str("action", name).Msg("Failed to refresh board")
		if actErr == nil {
			actErr = err
		}
		return s.failed(actErr), actErr
	}
	view.Message = st.message
	view.MessageKind = st.kind
	view.LastOrder = st.emitted
	s.last = view

	for _, e := range st.entries {
		s.record(ctx, view.Phase, e)
	}
	s.broadcaster.BroadcastDeskEvent(EventDeskUpdated, view)
	return view, actErr
}

// describeError turns an action failure into the operator message and the
// journal entries it warrants.
func (s *DeskService) describeError(name string, err error) step {
	switch {
	case errors.Is(err, selection.ErrNoUnitAtRegion):
		return step{message: err.Error(), kind: model.MessageInfo}
	case selection.IsLocalRejection(err), errors.Is(err, ErrUnknownParty), errors.Is(err, ErrUnknownRegion):
		log.Info().Str("action", name).Str("reason", err.Error()).Msg("Action rejected")
		return step{message: err.Error(), kind: model.MessageRejected}
	case engine.IsRejection(err):
		reason := engine.Reason(err)
		var party string
		var rej *engine.RejectionError
		if errors.As(err, &rej) {
			party = string(rej.Party)
		}
		log.Warn().Str("action", name).Str("party", party).Str("reason", reason).Msg("Engine rejected orders")
		return step{
			message: reason,
			kind:    model.MessageEngineRejected,
			entries: []model.JournalEntry{{Kind: model.JournalRejection, Party: party, Detail: reason}},
		}
	default:
		log.Error().Err(err).Str("action", name).Msg("Action failed")
		return step{message: err.Error(), kind: model.MessageError}
	}
}

// refresh re-reads the board, drops a stale selection and re-renders.
func (s *DeskService) refresh(ctx context.Context) (model.DeskView, error) {
	snap, err := s.reader.Snapshot(ctx)
	if err != nil {
		return model.DeskView{}, err
	}
	if next, changed := s.machine.Reconcile(s.sel, snap); changed {
		log.Debug().Str("unit", s.sel.Unit.ID()).Msg("Selection no longer on board, cleared")
		s.sel = next
	}

	img := s.compositor.Render(s.base, snap, s.sel)
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		return model.DeskView{}, fmt.Errorf("encode map: %w", err)
	}
	s.png = buf.Bytes()
	s.version++

	view := s.buildView(snap)
	if s.interaction == selection.ClickMenu {
		opts, err := s.machine.Options(ctx, s.sel, snap)
		if err != nil {
			return model.DeskView{}, err
		}
		if opts == nil && s.sel.State == selection.AwaitingConvoyTarget {
			opts = s.convoyDestinations()
		}
		view.Options = opts
	}
	s.last = view
	return view, nil
}

func (s *DeskService) convoyDestinations() []string {
	var out []string
	for _, r := range s.index.Regions() {
		if r.Name != s.sel.Carried.Region() {
			out = append(out, r.Name)
		}
	}
	return out
}

func (s *DeskService) buildView(snap *board.Snapshot) model.DeskView {
	view := model.DeskView{
		Phase:         snap.Phase,
		Interaction:   s.interaction.String(),
		Selection:     selectionView(s.sel),
		Parties:       make([]string, 0, len(snap.Parties)),
		Orders:        make(map[string][]string, len(snap.Parties)),
		Units:         make(map[string][]string, len(snap.Parties)),
		RenderVersion: s.version,
	}
	for _, p := range snap.Parties {
		view.Parties = append(view.Parties, string(p))
		view.Orders[string(p)] = slices.Clone(snap.Orders[p])
		units := []string{}
		for _, u := range snap.UnitsOf(p) {
			units = append(units, u.ID())
		}
		view.Units[string(p)] = units
	}
	return view
}

func selectionView(sel selection.Selection) model.SelectionView {
	v := model.SelectionView{State: sel.State.String(), Mode: sel.Mode.String()}
	if sel.HasUnit() {
		v.Unit = sel.Unit.ID()
		v.Owner = string(sel.Unit.Owner)
	}
	for _, u := range sel.Supportable {
		v.Supportable = append(v.Supportable, u.ID())
	}
	if !sel.Carried.IsZero() {
		v.Carried = sel.Carried.ID()
	}
	return v
}

// failed returns the last good view annotated with err.
func (s *DeskService) failed(err error) model.DeskView {
	view := s.last
	view.Selection = selectionView(s.sel)
	view.Message = err.Error()
	view.MessageKind = model.MessageError
	if engine.IsRejection(err) {
		view.Message = engine.Reason(err)
		view.MessageKind = model.MessageEngineRejected
	}
	return view
}

func (s *DeskService) record(ctx context.Context, phase string, e model.JournalEntry) {
	e.ID = uuid.NewString()
	e.Phase = phase
	e.CreatedAt = time.Now().UTC()
	if err := s.journal.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("kind", e.Kind).Msg("Failed to record journal entry")
	}
}

// Journal returns up to limit recent journal entries.
func (s *DeskService) Journal(ctx context.Context, limit int) ([]model.JournalEntry, error) {
	return s.journal.Recent(ctx, limit)
}

func emitted(out selection.Outcome) step {
	o := out.Order
	return step{
		message: "Order submitted: " + o.String(),
		kind:    model.MessageOK,
		emitted: o.String(),
		entries: []model.JournalEntry{{
			Kind:  model.JournalOrder,
			Party: string(o.Unit.Owner),
			Unit:  o.UnitID(),
			Order: o.String(),
		}},
	}
}

func checkParty(snap *board.Snapshot, p engine.Party) error {
	if !slices.Contains(snap.Parties, p) {
		return fmt.Errorf("%w: %s", ErrUnknownParty, p)
	}
	return nil
}
