package adjudicator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/freeeve/orderdesk/internal/engine"
)

// mockAdjudicatorSource is a tiny adjudicator holding one French army.
const mockAdjudicatorSource = `package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

func main() {
	orders := []string{}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "adj":
			fmt.Println("id name mock-adjudicator")
			fmt.Println("id author test")
			fmt.Println("protocol_version 1")
			fmt.Println("adjok")
		case line == "isready":
			fmt.Println("readyok")
		case line == "powers":
			fmt.Println("power FRANCE")
			fmt.Println("ok")
		case line == "units FRANCE":
			fmt.Println("unit A PAR")
			fmt.Println("ok")
		case line == "orders FRANCE":
			for _, o := range orders {
				fmt.Println("order " + o)
			}
			fmt.Println("ok")
		case strings.HasPrefix(line, "setorders FRANCE"):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "setorders FRANCE"))
			next := []string{}
			if rest != "" {
				for _, o := range strings.Split(rest, ";") {
					o = strings.TrimSpace(o)
					if !strings.HasPrefix(o, "A ") && !strings.HasPrefix(o, "F ") {
						fmt.Println("error malformed order: " + o)
						next = nil
						break
					}
					next = append(next, o)
				}
			}
			if next != nil {
				orders = next
				fmt.Println("ok")
			}
		case line == "phase":
			fmt.Println("phase Spring 1901 Movement")
			fmt.Println("ok")
		case line == "quit":
			os.Exit(0)
		default:
			fmt.Println("error unknown command")
		}
	}
}
`

// mockBadHandshakeSource never sends adjok.
const mockBadHandshakeSource = `package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("id name broken-adjudicator")
	os.Exit(0)
}
`

// buildMockAdjudicator compiles a Go source string into a temporary binary.
func buildMockAdjudicator(t *testing.T, source string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds a mock adjudicator binary")
	}

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "main.go")
	if err := os.WriteFile(srcPath, []byte(source), 0644); err != nil {
		t.Fatalf("write mock adjudicator source: %v", err)
	}

	ext := ""
	if runtime.GOOS == "windows" {
		ext = ".exe"
	}
	binPath := filepath.Join(dir, "mock_adjudicator"+ext)

	cmd := exec.Command("go", "build", "-o", binPath, srcPath)
	cmd.Env = append(os.Environ(), "GOOS="+runtime.GOOS, "GOARCH="+runtime.GOARCH)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build mock adjudicator: %v\n%s", err, out)
	}
	return binPath
}

func TestSubprocessRoundTrip(t *testing.T) {
	bin := buildMockAdjudicator(t, mockAdjudicatorSource)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	eng := NewEngine(bin)
	if err := eng.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer eng.Close()

	if eng.ID.Name != "mock-adjudicator" || eng.ID.ProtocolVersion != 1 {
		t.Errorf("unexpected id %+v", eng.ID)
	}

	units, err := eng.Units(ctx, "FRANCE")
	if err != nil || len(units) != 1 || units[0].ID() != "A PAR" {
		t.Fatalf("Units: %v, %v", units, err)
	}

	if err := eng.SetOrders(ctx, "FRANCE", []string{"A PAR - BUR"}); err != nil {
		t.Fatalf("SetOrders: %v", err)
	}
	orders, err := eng.Orders(ctx, "FRANCE")
	if err != nil || !slices.Equal(orders, []string{"A PAR - BUR"}) {
		t.Fatalf("Orders: %v, %v", orders, err)
	}

	err = eng.SetOrders(ctx, "FRANCE", []string{"nonsense"})
	if engine.Reason(err) != "malformed order: nonsense" {
		t.Errorf("expected verbatim rejection, got %v", err)
	}
	if !engine.IsRejection(err) {
		t.Errorf("expected rejection, got %T", err)
	}
	orders, _ = eng.Orders(ctx, "FRANCE")
	if !slices.Equal(orders, []string{"A PAR - BUR"}) {
		t.Errorf("rejected list must leave orders unchanged, got %v", orders)
	}

	phase, err := eng.Phase(ctx)
	if err != nil || phase != "Spring 1901 Movement" {
		t.Errorf("Phase: %q, %v", phase, err)
	}
}

func TestSubprocessBadHandshake(t *testing.T) {
	bin := buildMockAdjudicator(t, mockBadHandshakeSource)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	eng := NewEngine(bin)
	if err := eng.Init(ctx); err == nil {
		eng.Close()
		t.Fatal("expected handshake failure")
	}
}

func TestSubprocessMissingBinary(t *testing.T) {
	eng := NewEngine(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := eng.Init(context.Background()); err == nil {
		eng.Close()
		t.Fatal("expected start failure")
	}
}
