package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/dossier-backend/internal/domain"
	"github.com/yungbote/dossier-backend/internal/modules/gateway"
	"github.com/yungbote/dossier-backend/internal/platform/logger"
)

type funcGateway struct {
	mu       sync.Mutex
	prompts  []string
	complete func(question string) (string, error)
}

func (g *funcGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("not used")
}

func (g *funcGateway) Complete(ctx context.Context, messages []gateway.Message) (string, error) {
	user := messages[len(messages)-1].Content
	g.mu.Lock()
	g.prompts = append(g.prompts, user)
	g.mu.Unlock()
	return g.complete(questionOf(user))
}

func questionOf(prompt string) string {
	i := strings.LastIndex(prompt, "Question: ")
	j := strings.LastIndex(prompt, "\nAnswer:")
	if i < 0 || j < i {
		return ""
	}
	return prompt[i+len("Question: ") : j]
}

func contextOf(prompt string) string {
	i := strings.Index(prompt, "Context: ")
	j := strings.LastIndex(prompt, "\n\nQuestion: ")
	return prompt[i+len("Context: ") : j]
}

func newTestEngine(t *testing.T, gw gateway.Gateway, concurrency int) *Engine {
	t.Helper()
	e, err := NewEngine(EngineDeps{Log: logger.Nop(), Gateway: gw, Concurrency: concurrency})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func questions(n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = domain.Question{Text: fmt.Sprintf("Q%d", i), Kind: domain.QuestionText}
	}
	return out
}

func TestGeneratePreservesOrderUnderVariedLatency(t *testing.T) {
	gw := &funcGateway{complete: func(q string) (string, error) {
		var n int
		fmt.Sscanf(q, "Q%d", &n)
		time.Sleep(time.Duration(10-n) * 3 * time.Millisecond)
		return "  answer to " + q + "\n", nil
	}}
	e := newTestEngine(t, gw, 10)

	got := e.Generate(context.Background(), questions(10), nil, nil)
	if len(got) != 10 {
		t.Fatalf("len: want=10 got=%d", len(got))
	}
	for i, a := range got {
		want := fmt.Sprintf("Q%d", i)
		if a.Question != want || a.Answer != "answer to "+want || a.NeedsAssignment {
			t.Fatalf("answer %d: %+v", i, a)
		}
	}
}

func TestGenerateIsolatesSingleFailure(t *testing.T) {
	gw := &funcGateway{complete: func(q string) (string, error) {
		if q == "Q2" {
			return "", errors.New("upstream 500")
		}
		return "fine", nil
	}}
	e := newTestEngine(t, gw, 3)

	got := e.Generate(context.Background(), questions(5), nil, nil)
	if len(got) != 5 {
		t.Fatalf("len: want=5 got=%d", len(got))
	}
	flagged := 0
	for i, a := range got {
		if a.NeedsAssignment {
			flagged++
			if i != 2 {
				t.Fatalf("wrong question flagged: %d", i)
			}
			if a.Answer != "An error occurred while generating the answer: upstream 500" {
				t.Fatalf("error answer: %q", a.Answer)
			}
			continue
		}
		if a.Answer != "fine" {
			t.Fatalf("answer %d: %q", i, a.Answer)
		}
	}
	if flagged != 1 {
		t.Fatalf("flagged: want=1 got=%d", flagged)
	}
}

func TestGenerateProgressMonotonic(t *testing.T) {
	gw := &funcGateway{complete: func(q string) (string, error) { return "ok", nil }}
	e := newTestEngine(t, gw, 4)

	var seen []Progress
	e.Generate(context.Background(), questions(7), nil, func(p Progress) { seen = append(seen, p) })
	if len(seen) != 7 {
		t.Fatalf("callbacks: want=7 got=%d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i].Fraction < seen[i-1].Fraction {
			t.Fatalf("progress decreased: %v", seen)
		}
	}
	last := seen[len(seen)-1]
	if last.Fraction != 1.0 || last.Completed != 7 || last.Total != 7 {
		t.Fatalf("final progress: %+v", last)
	}
}

func TestGenerateZeroQuestions(t *testing.T) {
	gw := &funcGateway{complete: func(q string) (string, error) {
		t.Fatalf("completion should not be called")
		return "", nil
	}}
	e := newTestEngine(t, gw, 0)

	called := false
	got := e.Generate(context.Background(), nil, nil, func(Progress) { called = true })
	if len(got) != 0 || called {
		t.Fatalf("want empty result and no callback, got %v called=%v", got, called)
	}
}

func TestGenerateFlagsUnavailableAnswers(t *testing.T) {
	gw := &funcGateway{complete: func(q string) (string, error) {
		return "The Information is NOT available in the provided context.", nil
	}}
	e := newTestEngine(t, gw, 1)
	got := e.Generate(context.Background(), questions(1), nil, nil)
	if !got[0].NeedsAssignment {
		t.Fatalf("expected needs_assignment: %+v", got[0])
	}
}

func TestGenerateTruncatesContext(t *testing.T) {
	gw := &funcGateway{complete: func(q string) (string, error) { return "ok", nil }}
	e := newTestEngine(t, gw, 1)
	corpus := []domain.Document{
		{Title: "Policy", Text: strings.Repeat("a", 2500)},
		{Title: "Handbook", Text: strings.Repeat("b", 2500)},
	}
	e.Generate(context.Background(), questions(1), corpus, nil)

	full := "Title: Policy\n" + strings.Repeat("a", 2500) + "\nTitle: Handbook\n" + strings.Repeat("b", 2500)
	got := contextOf(gw.prompts[0])
	if got != full[:3000] {
		t.Fatalf("context: want first 3000 chars, got len=%d", len(got))
	}
}

func TestBuildContextShortCorpus(t *testing.T) {
	got := BuildContext([]domain.Document{{Title: "A", Text: "one"}, {Title: "B", Text: "two"}}, 3000)
	if got != "Title: A\none\nTitle: B\ntwo" {
		t.Fatalf("got %q", got)
	}
}
