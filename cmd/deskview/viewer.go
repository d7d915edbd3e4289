package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/orderdesk/internal/app"
	"github.com/freeeve/orderdesk/internal/model"
	"github.com/freeeve/orderdesk/internal/service"
)

const (
	statusHeight  = 36
	actionTimeout = 30 * time.Second
)

var statusBackground = color.NRGBA{R: 32, G: 32, B: 32, A: 255}

// result is the outcome of one desk action run off the game loop. img is
// set when the render changed.
type result struct {
	view    model.DeskView
	err     error
	img     image.Image
	version uint64
}

// viewer is the ebiten game. Desk actions run on a goroutine so a slow
// adjudicator never stalls the frame loop; only one runs at a time.
type viewer struct {
	desk    *service.DeskService
	results chan result
	busy    bool

	mapImage *ebiten.Image
	width    int
	height   int
	version  uint64

	view      model.DeskView
	lastParty string
	status    string
}

func newViewer(d *app.Desk) (*viewer, error) {
	v := &viewer{desk: d.Service, results: make(chan result, 1)}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	view, err := v.desk.View(ctx)
	if err != nil {
		return nil, err
	}
	img, version, err := fetchImage(ctx, v.desk, 0)
	if err != nil {
		return nil, err
	}
	v.setImage(img, version)
	v.view = view
	v.status = "Click a unit to begin"
	return v, nil
}

// keyActions maps keys to desk actions.
var keyActions = map[ebiten.Key]string{
	ebiten.KeyM:      "move",
	ebiten.KeyH:      "hold",
	ebiten.KeyS:      "support",
	ebiten.KeyC:      "convoy",
	ebiten.KeyEscape: "cancel",
	ebiten.KeyP:      "process",
}

func (v *viewer) Update() error {
	select {
	case r := <-v.results:
		v.busy = false
		v.apply(r)
	default:
	}
	if v.busy {
		return nil
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if y < v.height {
			v.run(func(ctx context.Context) (model.DeskView, error) { return v.desk.Click(ctx, x, y) })
			return nil
		}
	}
	for key, action := range keyActions {
		if inpututil.IsKeyJustPressed(key) {
			v.run(v.action(action))
			return nil
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyY) {
		v.copyOrders()
	}
	return nil
}

func (v *viewer) action(name string) func(context.Context) (model.DeskView, error) {
	switch name {
	case "move":
		return v.desk.BeginMove
	case "hold":
		return v.desk.Hold
	case "support":
		return v.desk.BeginSupport
	case "convoy":
		return v.desk.BeginConvoy
	case "process":
		return v.desk.Process
	default:
		return v.desk.Cancel
	}
}

func (v *viewer) run(fn func(context.Context) (model.DeskView, error)) {
	v.busy = true
	v.status = "Working..."
	known := v.version
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		view, err := fn(ctx)
		r := result{view: view, err: err}
		img, version, imgErr := fetchImage(ctx, v.desk, known)
		if imgErr != nil && r.err == nil {
			r.err = imgErr
		}
		r.img, r.version = img, version
		v.results <- r
	}()
}

// fetchImage decodes the latest render, or returns a nil image when the
// render version is still known.
func fetchImage(ctx context.Context, desk *service.DeskService, known uint64) (image.Image, uint64, error) {
	data, version, err := desk.Image(ctx)
	if err != nil {
		return nil, known, err
	}
	if version == known {
		return nil, known, nil
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, known, fmt.Errorf("decode render: %w", err)
	}
	return img, version, nil
}

func (v *viewer) setImage(img image.Image, version uint64) {
	v.mapImage = ebiten.NewImageFromImage(img)
	v.width, v.height = img.Bounds().Dx(), img.Bounds().Dy()
	v.version = version
}

func (v *viewer) apply(r result) {
	if r.img != nil {
		v.setImage(r.img, r.version)
	}
	v.view = r.view
	if owner := r.view.Selection.Owner; owner != "" {
		v.lastParty = owner
	}
	switch {
	case r.view.Message != "":
		v.status = r.view.Message
	case r.err != nil:
		v.status = r.err.Error()
	default:
		v.status = ""
	}
	if r.err != nil {
		log.Debug().Err(r.err).Msg("Desk action failed")
	}
}

// copyOrders copies the pending orders of the selected party, or the party
// that last acted, to the clipboard.
func (v *viewer) copyOrders() {
	party := v.view.Selection.Owner
	if party == "" {
		party = v.lastParty
	}
	if party == "" {
		v.status = "Select a unit first"
		return
	}
	text := strings.Join(v.view.Orders[party], "\n")
	if err := clipboard.WriteAll(text); err != nil {
		// Needs xclip or xsel on Linux.
		log.Warn().Err(err).Msg("Clipboard copy failed")
		v.status = "Clipboard unavailable: " + err.Error()
		return
	}
	v.status = fmt.Sprintf("Copied %d orders for %s", len(v.view.Orders[party]), party)
}

func (v *viewer) Draw(screen *ebiten.Image) {
	if v.mapImage != nil {
		screen.DrawImage(v.mapImage, nil)
	}
	bar := image.Rect(0, v.height, v.width, v.height+statusHeight)
	screen.SubImage(bar).(*ebiten.Image).Fill(statusBackground)

	sel := v.view.Selection.State
	if v.view.Selection.Unit != "" {
		sel += " " + v.view.Selection.Unit
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s | %s", v.view.Phase, sel), 6, v.height+2)
	ebitenutil.DebugPrintAt(screen, v.status, 6, v.height+18)
}

func (v *viewer) Layout(_, _ int) (int, int) {
	return v.width, v.height + statusHeight
}
