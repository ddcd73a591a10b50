package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

// recordingCollab captures reorder batches.
type recordingCollab struct {
	*fakeCollab
	pageUpdates     []models.OrderUpdate
	questionUpdates []models.OrderUpdate
	optionUpdates   []models.OrderUpdate
}

func (r *recordingCollab) ReorderPages(ctx context.Context, surveyID uuid.UUID, updates []models.OrderUpdate) error {
	r.pageUpdates = updates
	return r.fakeCollab.ReorderPages(ctx, surveyID, updates)
}

func (r *recordingCollab) ReorderQuestions(ctx context.Context, surveyID, pageID uuid.UUID, updates []models.OrderUpdate) error {
	r.questionUpdates = updates
	return r.fakeCollab.ReorderQuestions(ctx, surveyID, pageID, updates)
}

func (r *recordingCollab) ReorderOptions(ctx context.Context, surveyID, questionID uuid.UUID, updates []models.OrderUpdate) error {
	r.optionUpdates = updates
	return r.fakeCollab.ReorderOptions(ctx, surveyID, questionID, updates)
}

func three(t *testing.T, s *Session) (a, b, c *PageNode) {
	t.Helper()
	a, _ = s.AddPage(context.Background(), "a")
	b, _ = s.AddPage(context.Background(), "b")
	c, _ = s.AddPage(context.Background(), "c")
	if a == nil || b == nil || c == nil {
		t.Fatal("page setup failed")
	}
	return a, b, c
}

func TestReorderPagesAssignsPositionIndexes(t *testing.T) {
	rc := &recordingCollab{fakeCollab: newFakeCollab()}
	s := savedSession(t, rc.fakeCollab)
	s.collab = rc
	a, b, c := three(t, s)

	err := s.ReorderPages(context.Background(), []uuid.UUID{c.Ref.Local(), a.Ref.Local(), b.Ref.Local()})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}

	cID, _ := c.Ref.Confirmed()
	aID, _ := a.Ref.Confirmed()
	bID, _ := b.Ref.Confirmed()
	want := []models.OrderUpdate{{ID: cID, OrderIndex: 0}, {ID: aID, OrderIndex: 1}, {ID: bID, OrderIndex: 2}}
	if len(rc.pageUpdates) != 3 {
		t.Fatalf("updates = %d, want 3", len(rc.pageUpdates))
	}
	for i := range want {
		if rc.pageUpdates[i] != want[i] {
			t.Errorf("update %d = %+v, want %+v", i, rc.pageUpdates[i], want[i])
		}
	}

	got := s.Pages()
	if got[0] != c || got[1] != a || got[2] != b {
		t.Error("local order not applied")
	}
	for i, p := range got {
		if p.OrderIndex != i {
			t.Errorf("page %d OrderIndex = %d", i, p.OrderIndex)
		}
	}
}

func TestReorderPagesRevertsOnFailure(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	a, b, c := three(t, s)
	before := []int{a.OrderIndex, b.OrderIndex, c.OrderIndex}

	f.fail["reorder pages"] = true
	err := s.ReorderPages(context.Background(), []uuid.UUID{c.Ref.Local(), a.Ref.Local(), b.Ref.Local()})
	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CollaboratorError", err)
	}

	got := s.Pages()
	if got[0] != a || got[1] != b || got[2] != c {
		t.Error("order not reverted to pre-reorder state")
	}
	for i, p := range got {
		if p.OrderIndex != before[i] {
			t.Errorf("page %d OrderIndex = %d after revert, want %d", i, p.OrderIndex, before[i])
		}
	}
}

func TestReorderRejectsIncompleteSequence(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	a, _, c := three(t, s)

	callsBefore := len(f.calls)
	err := s.ReorderPages(context.Background(), []uuid.UUID{c.Ref.Local(), a.Ref.Local()})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("err = %v, want ErrInvalidOperation", err)
	}
	if len(f.calls) != callsBefore {
		t.Error("collaborator called for invalid batch")
	}
}

func TestReorderRejectsDuplicateAndForeignIDs(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	a, b, _ := three(t, s)

	err := s.ReorderPages(context.Background(), []uuid.UUID{a.Ref.Local(), a.Ref.Local(), b.Ref.Local()})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("duplicate ids: err = %v, want ErrInvalidOperation", err)
	}

	err = s.ReorderPages(context.Background(), []uuid.UUID{a.Ref.Local(), b.Ref.Local(), uuid.New()})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign id: err = %v, want ErrNotFound", err)
	}
}

func TestReorderQuestionsAndOptions(t *testing.T) {
	rc := &recordingCollab{fakeCollab: newFakeCollab()}
	s := savedSession(t, rc.fakeCollab)
	s.collab = rc
	page, _ := s.AddPage(context.Background(), "p")
	q, _ := s.AddQuestion(context.Background(), page.Ref.Local(), "pick", models.QuestionSingle)
	first := q.Options[0]
	second, err := s.AddOption(context.Background(), q.Ref.Local(), "more")
	if err != nil {
		t.Fatalf("add option: %v", err)
	}

	if err := s.ReorderOptions(context.Background(), q.Ref.Local(), []uuid.UUID{second.Ref.Local(), first.Ref.Local()}); err != nil {
		t.Fatalf("reorder options: %v", err)
	}
	if q.Options[0] != second || q.Options[1] != first {
		t.Error("option order not applied")
	}
	if len(rc.optionUpdates) != 2 || rc.optionUpdates[0].OrderIndex != 0 || rc.optionUpdates[1].OrderIndex != 1 {
		t.Errorf("option updates = %+v", rc.optionUpdates)
	}

	other, _ := s.AddQuestion(context.Background(), page.Ref.Local(), "say", models.QuestionShort)
	if err := s.ReorderQuestions(context.Background(), page.Ref.Local(), []uuid.UUID{other.Ref.Local(), q.Ref.Local()}); err != nil {
		t.Fatalf("reorder questions: %v", err)
	}
	if page.Questions[0] != other || page.Questions[1] != q {
		t.Error("question order not applied")
	}
	if len(rc.questionUpdates) != 2 {
		t.Errorf("question updates = %d, want 2", len(rc.questionUpdates))
	}
}
