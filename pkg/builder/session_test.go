package builder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

// fakeCollab records calls and can be told to fail specific operations.
// Created entities get order indexes by append position, matching the
// repository contract.
type fakeCollab struct {
	fail       map[string]bool
	calls      []string
	lastFields map[string]any
	detail     *models.SurveyDetail

	pageSeq     int
	questionSeq map[uuid.UUID]int
	optionSeq   map[uuid.UUID]int
}

func newFakeCollab() *fakeCollab {
	return &fakeCollab{
		fail:        map[string]bool{},
		questionSeq: map[uuid.UUID]int{},
		optionSeq:   map[uuid.UUID]int{},
	}
}

func (f *fakeCollab) record(op string) error {
	f.calls = append(f.calls, op)
	if f.fail[op] {
		return fmt.Errorf("%s rejected", op)
	}
	return nil
}

func (f *fakeCollab) SurveyDetail(ctx context.Context, surveyID uuid.UUID) (*models.SurveyDetail, error) {
	if err := f.record("survey detail"); err != nil {
		return nil, err
	}
	return f.detail, nil
}

func (f *fakeCollab) CreateSurvey(ctx context.Context, fields map[string]any) (*models.Survey, error) {
	if err := f.record("create survey"); err != nil {
		return nil, err
	}
	f.lastFields = fields
	title, _ := fields["title"].(string)
	return &models.Survey{ID: uuid.New(), UserID: uuid.New(), Title: title}, nil
}

func (f *fakeCollab) UpdateSurvey(ctx context.Context, surveyID uuid.UUID, fields map[string]any) (*models.Survey, error) {
	if err := f.record("update survey"); err != nil {
		return nil, err
	}
	f.lastFields = fields
	return &models.Survey{ID: surveyID}, nil
}

func (f *fakeCollab) CreatePage(ctx context.Context, surveyID uuid.UUID, fields map[string]any) (*models.Page, error) {
	if err := f.record("create page"); err != nil {
		return nil, err
	}
	f.lastFields = fields
	title, _ := fields["title"].(string)
	p := &models.Page{ID: uuid.New(), SurveyID: surveyID, Title: title, OrderIndex: f.pageSeq}
	f.pageSeq++
	return p, nil
}

func (f *fakeCollab) UpdatePage(ctx context.Context, surveyID, pageID uuid.UUID, fields map[string]any) (*models.Page, error) {
	if err := f.record("update page"); err != nil {
		return nil, err
	}
	f.lastFields = fields
	return &models.Page{ID: pageID, SurveyID: surveyID}, nil
}

func (f *fakeCollab) DeletePage(ctx context.Context, surveyID, pageID uuid.UUID) error {
	return f.record("delete page")
}

func (f *fakeCollab) ReorderPages(ctx context.Context, surveyID uuid.UUID, updates []models.OrderUpdate) error {
	return f.record("reorder pages")
}

func (f *fakeCollab) CreateQuestion(ctx context.Context, surveyID, pageID uuid.UUID, fields map[string]any) (*models.Question, error) {
	if err := f.record("create question"); err != nil {
		return nil, err
	}
	f.lastFields = fields
	title, _ := fields["title"].(string)
	qType := models.QuestionType(fields["type"].(string))
	q := &models.Question{ID: uuid.New(), PageID: pageID, Title: title, Type: qType, OrderIndex: f.questionSeq[pageID]}
	f.questionSeq[pageID]++
	if qType.HasOptions() {
		q.Options = []models.Option{{ID: uuid.New(), QuestionID: q.ID, Text: "", OrderIndex: 0}}
		f.optionSeq[q.ID] = 1
	}
	return q, nil
}

func (f *fakeCollab) UpdateQuestion(ctx context.Context, surveyID, questionID uuid.UUID, fields map[string]any) (*models.Question, error) {
	if err := f.record("update question"); err != nil {
		return nil, err
	}
	f.lastFields = fields
	return &models.Question{ID: questionID}, nil
}

func (f *fakeCollab) DeleteQuestion(ctx context.Context, surveyID, questionID uuid.UUID) error {
	return f.record("delete question")
}

func (f *fakeCollab) ReorderQuestions(ctx context.Context, surveyID, pageID uuid.UUID, updates []models.OrderUpdate) error {
	return f.record("reorder questions")
}

func (f *fakeCollab) CreateOption(ctx context.Context, surveyID, questionID uuid.UUID, text string) (*models.Option, error) {
	if err := f.record("create option"); err != nil {
		return nil, err
	}
	o := &models.Option{ID: uuid.New(), QuestionID: questionID, Text: text, OrderIndex: f.optionSeq[questionID]}
	f.optionSeq[questionID]++
	return o, nil
}

func (f *fakeCollab) UpdateOption(ctx context.Context, surveyID, optionID uuid.UUID, text string) (*models.Option, error) {
	if err := f.record("update option"); err != nil {
		return nil, err
	}
	return &models.Option{ID: optionID, Text: text}, nil
}

func (f *fakeCollab) DeleteOption(ctx context.Context, surveyID, optionID uuid.UUID) error {
	return f.record("delete option")
}

func (f *fakeCollab) ReorderOptions(ctx context.Context, surveyID, questionID uuid.UUID, updates []models.OrderUpdate) error {
	return f.record("reorder options")
}

var _ Collaborator = (*fakeCollab)(nil)

// savedSession returns a session for an already-persisted survey.
func savedSession(t *testing.T, f *fakeCollab) *Session {
	t.Helper()
	s := NewSession(f)
	if err := s.SaveSurvey(context.Background()); err != nil {
		t.Fatalf("save survey: %v", err)
	}
	return s
}

func TestSaveSurveySendsStagedFieldsOnCreate(t *testing.T) {
	f := newFakeCollab()
	s := NewSession(f)
	if err := s.SetSurveyField("title", "Feedback"); err != nil {
		t.Fatalf("set title: %v", err)
	}
	if err := s.SetSurveyField("cover_image", "https://cdn.example.com/cover.png"); err != nil {
		t.Fatalf("set cover_image: %v", err)
	}

	if err := s.SaveSurvey(context.Background()); err != nil {
		t.Fatalf("save survey: %v", err)
	}
	if f.lastFields["title"] != "Feedback" {
		t.Errorf("title = %v", f.lastFields["title"])
	}
	if f.lastFields["cover_image"] != "https://cdn.example.com/cover.png" {
		t.Errorf("cover_image not sent on create: %v", f.lastFields["cover_image"])
	}
}

func TestAddPageRequiresSavedSurvey(t *testing.T) {
	s := NewSession(newFakeCollab())
	_, err := s.AddPage(context.Background(), "p")
	if !errors.Is(err, ErrPrerequisite) {
		t.Fatalf("err = %v, want ErrPrerequisite", err)
	}
	if len(s.Pages()) != 0 {
		t.Errorf("tree changed on rejected AddPage")
	}
}

func TestAddPageConfirmsEntity(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)

	page, err := s.AddPage(context.Background(), "Intro")
	if err != nil {
		t.Fatalf("add page: %v", err)
	}
	if page.Ref.Pending() {
		t.Error("page still pending after confirmed creation")
	}
	if _, err := page.Ref.Confirmed(); err != nil {
		t.Errorf("Confirmed() = %v", err)
	}
	if len(s.Pages()) != 1 || s.Pages()[0] != page {
		t.Errorf("page not in tree")
	}
}

func TestAddPageRollbackOnFailure(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	if _, err := s.AddPage(context.Background(), "keep"); err != nil {
		t.Fatalf("add page: %v", err)
	}
	before := append([]*PageNode(nil), s.Pages()...)

	f.fail["create page"] = true
	_, err := s.AddPage(context.Background(), "reject")
	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CollaboratorError", err)
	}
	after := s.Pages()
	if len(after) != len(before) {
		t.Fatalf("pages = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("page %d changed after rollback", i)
		}
	}
}

func TestAddQuestionRollbackOnFailure(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	page, err := s.AddPage(context.Background(), "p")
	if err != nil {
		t.Fatalf("add page: %v", err)
	}
	existing, err := s.AddQuestion(context.Background(), page.Ref.Local(), "q0", models.QuestionShort)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}

	f.fail["create question"] = true
	_, err = s.AddQuestion(context.Background(), page.Ref.Local(), "q1", models.QuestionSingle)
	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CollaboratorError", err)
	}
	if len(page.Questions) != 1 || page.Questions[0] != existing {
		t.Errorf("question list not restored: %d entries", len(page.Questions))
	}
}

func TestAddQuestionChoiceTypeGetsDefaultOption(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	page, _ := s.AddPage(context.Background(), "p")

	choice, err := s.AddQuestion(context.Background(), page.Ref.Local(), "pick", models.QuestionSingle)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if len(choice.Options) != 1 {
		t.Fatalf("options = %d, want 1 default", len(choice.Options))
	}
	if choice.Options[0].Ref.Pending() {
		t.Error("default option not confirmed from server response")
	}

	text, err := s.AddQuestion(context.Background(), page.Ref.Local(), "say", models.QuestionLong)
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if len(text.Options) != 0 {
		t.Errorf("text question has %d options", len(text.Options))
	}
}

func TestAddOptionOnTextQuestionFails(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	page, _ := s.AddPage(context.Background(), "p")
	q, _ := s.AddQuestion(context.Background(), page.Ref.Local(), "free", models.QuestionShort)

	callsBefore := len(f.calls)
	_, err := s.AddOption(context.Background(), q.Ref.Local(), "nope")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("err = %v, want ErrInvalidOperation", err)
	}
	if len(q.Options) != 0 {
		t.Error("tree changed on rejected AddOption")
	}
	if len(f.calls) != callsBefore {
		t.Error("collaborator called for invalid operation")
	}
}

func TestDeletePageReinsertsAtOriginalIndex(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	first, _ := s.AddPage(context.Background(), "first")
	middle, _ := s.AddPage(context.Background(), "middle")
	last, _ := s.AddPage(context.Background(), "last")

	f.fail["delete page"] = true
	err := s.DeletePage(context.Background(), middle.Ref.Local())
	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want CollaboratorError", err)
	}
	got := s.Pages()
	if len(got) != 3 || got[0] != first || got[1] != middle || got[2] != last {
		t.Errorf("pages not restored in original order")
	}
}

func TestDeletePendingEntitySkipsCollaborator(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	page, _ := s.AddPage(context.Background(), "p")
	q, _ := s.AddQuestion(context.Background(), page.Ref.Local(), "pick", models.QuestionMultiple)

	// force a pending option onto the tree via a failed create, then
	// simulate one that never got confirmed
	pending := &OptionNode{Ref: NewPending(), Text: "ghost", OrderIndex: len(q.Options)}
	q.Options = append(q.Options, pending)

	callsBefore := len(f.calls)
	if err := s.DeleteOption(context.Background(), pending.Ref.Local()); err != nil {
		t.Fatalf("delete pending option: %v", err)
	}
	if len(f.calls) != callsBefore {
		t.Error("collaborator called for pending entity")
	}
	if len(q.Options) != 1 {
		t.Errorf("options = %d, want 1", len(q.Options))
	}
}

func TestCommitPageSendsOnlyDirtyFields(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	page, _ := s.AddPage(context.Background(), "p")

	if err := s.SetPageField(page.Ref.Local(), "title", "renamed"); err != nil {
		t.Fatalf("set field: %v", err)
	}
	callsBefore := len(f.calls)
	if err := s.CommitPage(context.Background(), page.Ref.Local()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(f.calls) != callsBefore+1 {
		t.Fatalf("expected one update call")
	}
	if len(f.lastFields) != 1 || f.lastFields["title"] != "renamed" {
		t.Errorf("update fields = %v, want only title", f.lastFields)
	}

	// second commit with nothing staged is a no-op
	callsBefore = len(f.calls)
	if err := s.CommitPage(context.Background(), page.Ref.Local()); err != nil {
		t.Fatalf("empty commit: %v", err)
	}
	if len(f.calls) != callsBefore {
		t.Error("empty commit hit the collaborator")
	}
}

func TestSetFieldRejectsUnknownField(t *testing.T) {
	f := newFakeCollab()
	s := savedSession(t, f)
	page, _ := s.AddPage(context.Background(), "p")
	if err := s.SetPageField(page.Ref.Local(), "order_index", 5); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("err = %v, want ErrInvalidOperation", err)
	}
}

func TestLoadBuildsTreeFromDetail(t *testing.T) {
	surveyID := uuid.New()
	pageID := uuid.New()
	questionID := uuid.New()
	optID := uuid.New()
	text := "Yes"

	f := newFakeCollab()
	f.detail = &models.SurveyDetail{
		Survey: models.Survey{ID: surveyID, Title: "loaded"},
		Rows: []models.SurveyRow{
			{
				PageID: pageID, PageTitle: "P1",
				QuestionID: &questionID, QuestionType: typePtr(models.QuestionSingle), QuestionOrder: intPtr(0),
				OptionID: &optID, OptionText: &text, OptionOrder: intPtr(0),
			},
		},
	}

	s, err := Load(context.Background(), f, surveyID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Survey.ID != surveyID {
		t.Errorf("survey id = %s", s.Survey.ID)
	}
	if s.SurveyRef().Pending() {
		t.Error("loaded survey should be confirmed")
	}
	if len(s.Pages()) != 1 || len(s.Pages()[0].Questions) != 1 {
		t.Fatalf("tree shape wrong: %+v", s.Pages())
	}
	opt := s.Pages()[0].Questions[0].Options
	if len(opt) != 1 || opt[0].Text != "Yes" || opt[0].Ref.Pending() {
		t.Errorf("option not loaded as confirmed: %+v", opt)
	}
}

func TestEntityRefConfirmedGate(t *testing.T) {
	pending := NewPending()
	if _, err := pending.Confirmed(); !errors.Is(err, ErrPrerequisite) {
		t.Errorf("pending Confirmed() err = %v, want ErrPrerequisite", err)
	}
	id := uuid.New()
	confirmed := NewConfirmed(id)
	got, err := confirmed.Confirmed()
	if err != nil || got != id {
		t.Errorf("Confirmed() = %s, %v", got, err)
	}
}
