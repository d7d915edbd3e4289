package service

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/freeeve/orderdesk/internal/engine"
	"github.com/freeeve/orderdesk/internal/model"
	"github.com/freeeve/orderdesk/internal/selection"
)

func TestClickSelectThenMove(t *testing.T) {
	f := newFixture(t, selection.ClickClick)

	view, err := f.click(t, "PAR")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if view.Selection.State != "unit_selected" || view.Selection.Unit != "A PAR" || view.Selection.Owner != "FRANCE" {
		t.Fatalf("selection = %+v", view.Selection)
	}

	view, err = f.click(t, "BUR")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if view.LastOrder != "A PAR - BUR" || view.MessageKind != model.MessageOK {
		t.Fatalf("view = %+v", view)
	}
	if view.Selection.State != "idle" {
		t.Fatalf("selection after order = %+v", view.Selection)
	}
	if !slices.Equal(view.Orders["FRANCE"], []string{"A PAR - BUR"}) {
		t.Fatalf("orders = %v", view.Orders["FRANCE"])
	}
	if got := f.journal.kinds(); !slices.Equal(got, []string{model.JournalOrder}) {
		t.Fatalf("journal = %v", got)
	}
	if e := f.journal.entries[0]; e.Party != "FRANCE" || e.Unit != "A PAR" || e.Phase != "Spring 1901 Movement" || e.ID == "" {
		t.Fatalf("journal entry = %+v", e)
	}
	if f.bc.count() != 2 {
		t.Fatalf("broadcasts = %d, want 2", f.bc.count())
	}
}

func TestClickEmptyRegionIsInformational(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	view, err := f.click(t, "BUR")
	if !errors.Is(err, selection.ErrNoUnitAtRegion) {
		t.Fatalf("err = %v", err)
	}
	if view.MessageKind != model.MessageInfo || view.Selection.State != "idle" {
		t.Fatalf("view = %+v", view)
	}
	if n := f.eng.CountCalls("SetOrders"); n != 0 {
		t.Fatalf("SetOrders calls = %d", n)
	}
}

func TestIllegalMoveKeepsSelection(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	if _, err := f.click(t, "LON"); err != nil {
		t.Fatal(err)
	}
	view, err := f.click(t, "PAR")
	if !errors.Is(err, selection.ErrIllegalDestination) {
		t.Fatalf("err = %v", err)
	}
	if view.MessageKind != model.MessageRejected || view.Selection.Unit != "F LON" {
		t.Fatalf("view = %+v", view)
	}
	if len(f.journal.kinds()) != 0 {
		t.Fatalf("journal = %v", f.journal.kinds())
	}
}

func TestEngineRejectionClearsSelection(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	f.eng.SetOrdersErr = &engine.RejectionError{Op: "setorders", Party: "FRANCE", Reason: "A PAR - BUR: bounced by house rules"}

	view, err := f.click(t, "BUR")
	if !engine.IsRejection(err) {
		t.Fatalf("err = %v", err)
	}
	if view.Message != "A PAR - BUR: bounced by house rules" || view.MessageKind != model.MessageEngineRejected {
		t.Fatalf("message = %q (%s)", view.Message, view.MessageKind)
	}
	if view.Selection.State != "idle" || f.svc.Selection().HasUnit() {
		t.Fatalf("selection not cleared: %+v", view.Selection)
	}
	if got := f.journal.kinds(); !slices.Equal(got, []string{model.JournalRejection}) {
		t.Fatalf("journal = %v", got)
	}
	if f.journal.entries[0].Party != "FRANCE" {
		t.Fatalf("rejection party = %q", f.journal.entries[0].Party)
	}
}

func TestHoldSupportConvoyActions(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()

	if _, err := f.svc.Hold(ctx); !errors.Is(err, selection.ErrNoSelection) {
		t.Fatalf("hold with no selection: %v", err)
	}

	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.Hold(ctx)
	if err != nil || view.LastOrder != "A PAR H" {
		t.Fatalf("hold: %v %+v", err, view)
	}

	if _, err := f.click(t, "EDI"); err != nil {
		t.Fatal(err)
	}
	view, err = f.svc.BeginSupport(ctx)
	if err != nil {
		t.Fatalf("support: %v", err)
	}
	if view.Selection.State != "awaiting_support_target" || !slices.Equal(view.Selection.Supportable, []string{"A LVP"}) {
		t.Fatalf("selection = %+v", view.Selection)
	}
	view, err = f.click(t, "LVP")
	if err != nil || view.LastOrder != "F EDI S A LVP" {
		t.Fatalf("support target: %v %+v", err, view)
	}

	if _, err := f.click(t, "LON"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.BeginConvoy(ctx); err != nil {
		t.Fatalf("convoy: %v", err)
	}
	view, err = f.click(t, "LVP")
	if err != nil || view.Selection.Carried != "A LVP" {
		t.Fatalf("carried: %v %+v", err, view.Selection)
	}
	view, err = f.click(t, "NWY")
	if err != nil || view.LastOrder != "F LON C A LVP - NWY" {
		t.Fatalf("convoy destination: %v %+v", err, view)
	}
	if got := view.Orders["ENGLAND"]; !slices.Equal(got, []string{"F EDI S A LVP", "F LON C A LVP - NWY"}) {
		t.Fatalf("ENGLAND orders = %v", got)
	}
}

func TestProcessClearsSelectionAndAdvances(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()
	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.click(t, "BUR"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.click(t, "MAR"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.BeginSupport(ctx); err == nil {
		t.Fatal("expected nothing to support from MAR")
	}

	view, err := f.svc.Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if view.Phase != "Fall 1901 Movement" {
		t.Fatalf("phase = %q", view.Phase)
	}
	if view.Selection.State != "idle" {
		t.Fatalf("selection survived processing: %+v", view.Selection)
	}
	if !slices.Contains(view.Units["FRANCE"], "A BUR") {
		t.Fatalf("FRANCE units = %v", view.Units["FRANCE"])
	}
	kinds := f.journal.kinds()
	if kinds[len(kinds)-1] != model.JournalProcess {
		t.Fatalf("journal = %v", kinds)
	}
	if last := f.journal.entries[len(f.journal.entries)-1]; last.Phase != "Fall 1901 Movement" {
		t.Fatalf("process entry phase = %q", last.Phase)
	}
}

func TestProcessFailureStillClearsSelection(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	f.eng.ProcessErr = errors.New("adjudicator crashed")
	view, err := f.svc.Process(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if view.Selection.State != "idle" || view.MessageKind != model.MessageError {
		t.Fatalf("view = %+v", view)
	}
	if view.Phase != "Spring 1901 Movement" {
		t.Fatalf("phase changed on failure: %q", view.Phase)
	}
}

func TestStaleSelectionDroppedOnRefresh(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()
	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	f.eng.SetPending("FRANCE", "A PAR - PIC")
	if err := f.eng.Process(ctx); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.View(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if view.Selection.State != "idle" {
		t.Fatalf("stale selection kept: %+v", view.Selection)
	}
}

func TestTextEntryDeleteClear(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()

	view, err := f.svc.EnterOrders(ctx, "france", "A PAR - BUR\nA MAR H\nF BRE - MAO\n")
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if !slices.Equal(view.Orders["FRANCE"], []string{"A PAR - BUR", "A MAR H", "F BRE - MAO"}) {
		t.Fatalf("orders = %v", view.Orders["FRANCE"])
	}

	view, err = f.svc.DeleteOrder(ctx, "FRANCE", "A MAR")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !slices.Equal(view.Orders["FRANCE"], []string{"A PAR - BUR", "F BRE - MAO"}) {
		t.Fatalf("orders after delete = %v", view.Orders["FRANCE"])
	}

	view, err = f.svc.ClearOrders(ctx, "FRANCE")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(view.Orders["FRANCE"]) != 0 {
		t.Fatalf("orders after clear = %v", view.Orders["FRANCE"])
	}

	want := []string{model.JournalReplace, model.JournalDelete, model.JournalClear}
	if got := f.journal.kinds(); !slices.Equal(got, want) {
		t.Fatalf("journal = %v, want %v", got, want)
	}
}

func TestTextEntryRejectedAndUnknownParty(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()

	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.EnterOrders(ctx, "FRANCE", "A PAR - BUR\ngarbage")
	if !engine.IsRejection(err) || view.Message != "malformed order: garbage" {
		t.Fatalf("err = %v, message = %q", err, view.Message)
	}
	if len(view.Orders["FRANCE"]) != 0 {
		t.Fatalf("orders = %v", view.Orders["FRANCE"])
	}
	if view.Selection.State != "idle" || f.svc.Selection().HasUnit() {
		t.Fatalf("rejected text entry kept selection: %+v", view.Selection)
	}

	if _, err := f.svc.EnterOrders(ctx, "ATLANTIS", "A PAR H"); !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("unknown party err = %v", err)
	}
	if _, err := f.svc.ClearOrders(ctx, "ATLANTIS"); !errors.Is(err, ErrUnknownParty) {
		t.Fatalf("unknown party clear err = %v", err)
	}
}

func TestListRejectionsClearSelection(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()
	rejection := &engine.RejectionError{Op: "setorders", Party: "FRANCE", Reason: "orders locked"}

	actions := []struct {
		name string
		run  func() (model.DeskView, error)
	}{
		{"delete", func() (model.DeskView, error) { return f.svc.DeleteOrder(ctx, "FRANCE", "A MAR") }},
		{"clear", func() (model.DeskView, error) { return f.svc.ClearOrders(ctx, "FRANCE") }},
	}
	for _, a := range actions {
		if _, err := f.click(t, "PAR"); err != nil {
			t.Fatalf("%s: select: %v", a.name, err)
		}
		f.eng.SetOrdersErr = rejection
		view, err := a.run()
		if !engine.IsRejection(err) {
			t.Fatalf("%s: expected rejection, got %v", a.name, err)
		}
		if view.Selection.State != "idle" {
			t.Errorf("%s: selection kept after rejection: %+v", a.name, view.Selection)
		}
	}
}

func TestActionSeesExternallyMovedUnitAsGone(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()
	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	f.eng.SetPending("FRANCE", "A PAR - PIC")
	if err := f.eng.Process(ctx); err != nil {
		t.Fatal(err)
	}
	before := f.eng.CountCalls("SetOrders")

	_, err := f.svc.Hold(ctx)
	if !errors.Is(err, selection.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection for a unit that moved away, got %v", err)
	}
	if got := f.eng.CountCalls("SetOrders"); got != before {
		t.Errorf("stale hold reached the engine: %d SetOrders calls, want %d", got, before)
	}
}

func TestMenuInteraction(t *testing.T) {
	f := newFixture(t, selection.ClickMenu)
	ctx := context.Background()

	view, err := f.svc.ChooseRegion(ctx, "par")
	if err != nil {
		t.Fatalf("choose PAR: %v", err)
	}
	if view.Interaction != "menu" {
		t.Fatalf("interaction = %q", view.Interaction)
	}
	if want := []string{"BRE", "BUR", "GAS", "PIC"}; !slices.Equal(view.Options, want) {
		t.Fatalf("options = %v, want %v", view.Options, want)
	}
	view, err = f.svc.ChooseRegion(ctx, "GAS")
	if err != nil || view.LastOrder != "A PAR - GAS" {
		t.Fatalf("choose GAS: %v %+v", err, view)
	}

	if _, err := f.svc.ChooseRegion(ctx, "XYZ"); !errors.Is(err, ErrUnknownRegion) {
		t.Fatalf("unknown region err = %v", err)
	}
}

func TestMenuConvoyDestinations(t *testing.T) {
	f := newFixture(t, selection.ClickMenu)
	ctx := context.Background()
	if _, err := f.svc.ChooseRegion(ctx, "LON"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.BeginConvoy(ctx); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.ChooseRegion(ctx, "LVP")
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(view.Options, "LVP") || !slices.Contains(view.Options, "NWY") {
		t.Fatalf("convoy destination options = %v", view.Options)
	}
}

func TestImageAndVersion(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()

	png, v1, err := f.svc.Image(ctx)
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("not a PNG")
	}
	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	png2, v2, err := f.svc.Image(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v2 <= v1 {
		t.Fatalf("version did not advance: %d -> %d", v1, v2)
	}
	if bytes.Equal(png, png2) {
		t.Fatal("selection ring did not change the image")
	}
}

func TestJournalFailureDoesNotBlockOrders(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	f.journal.fail = true
	if _, err := f.click(t, "PAR"); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.Hold(context.Background())
	if err != nil || view.LastOrder != "A PAR H" {
		t.Fatalf("hold: %v %+v", err, view)
	}
}

func TestResetRestoresBoard(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()
	if _, err := f.svc.EnterOrders(ctx, "FRANCE", "A PAR - BUR"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Process(ctx); err != nil {
		t.Fatal(err)
	}
	view, err := f.svc.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if view.Phase != "Spring 1901 Movement" || !slices.Contains(view.Units["FRANCE"], "A PAR") {
		t.Fatalf("view after reset = %+v", view)
	}
}

func TestConcurrentActionsAreSerialised(t *testing.T) {
	f := newFixture(t, selection.ClickClick)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				f.svc.EnterOrders(ctx, "GERMANY", "A MUN H\nA RUH H")
			} else {
				f.svc.View(ctx)
			}
		}(i)
	}
	wg.Wait()

	got := f.eng.Pending("GERMANY")
	if !slices.Equal(got, []string{"A MUN H", "A RUH H"}) {
		t.Fatalf("GERMANY orders = %v", got)
	}
}
