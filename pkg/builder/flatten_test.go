package builder

import (
	"testing"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }
func typePtr(t models.QuestionType) *models.QuestionType {
	return &t
}

func optionRow(pageID uuid.UUID, pageOrder int, questionID uuid.UUID, qType models.QuestionType, qOrder int, optionID uuid.UUID, text string, oOrder int) models.SurveyRow {
	return models.SurveyRow{
		PageID:           pageID,
		PageOrder:        pageOrder,
		QuestionID:       &questionID,
		QuestionType:     typePtr(qType),
		QuestionRequired: boolPtr(false),
		QuestionOrder:    intPtr(qOrder),
		OptionID:         &optionID,
		OptionText:       &text,
		OptionOrder:      intPtr(oOrder),
	}
}

func TestFlattenSingleChoiceSurvey(t *testing.T) {
	pageID := uuid.New()
	questionID := uuid.New()
	yesID := uuid.New()
	noID := uuid.New()

	rows := []models.SurveyRow{
		optionRow(pageID, 0, questionID, models.QuestionSingle, 0, yesID, "Yes", 0),
		optionRow(pageID, 0, questionID, models.QuestionSingle, 0, noID, "No", 1),
	}
	rows[0].PageTitle = "P1"
	rows[1].PageTitle = "P1"
	rows[0].QuestionTitle = strPtr("Q1")
	rows[1].QuestionTitle = strPtr("Q1")

	pages := Flatten(rows)
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	page := pages[0]
	if page.ID != pageID || page.Title != "P1" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if len(page.Questions) != 1 {
		t.Fatalf("questions = %d, want 1", len(page.Questions))
	}
	q := page.Questions[0]
	if q.ID != questionID || q.Title != "Q1" || q.Type != models.QuestionSingle {
		t.Fatalf("unexpected question: %+v", q)
	}
	if len(q.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(q.Options))
	}
	if q.Options[0].ID != yesID || q.Options[0].Text != "Yes" {
		t.Errorf("first option = %+v, want Yes", q.Options[0])
	}
	if q.Options[1].ID != noID || q.Options[1].Text != "No" {
		t.Errorf("second option = %+v, want No", q.Options[1])
	}
}

func TestFlattenPreservesFirstSeenOrder(t *testing.T) {
	pageA := uuid.New()
	pageB := uuid.New()
	qA := uuid.New()
	qB := uuid.New()

	rows := []models.SurveyRow{
		{PageID: pageB, PageTitle: "B", PageOrder: 0, QuestionID: &qB, QuestionType: typePtr(models.QuestionShort), QuestionOrder: intPtr(0)},
		{PageID: pageA, PageTitle: "A", PageOrder: 1, QuestionID: &qA, QuestionType: typePtr(models.QuestionLong), QuestionOrder: intPtr(0)},
	}
	pages := Flatten(rows)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if pages[0].ID != pageB || pages[1].ID != pageA {
		t.Errorf("page order not first-seen: got [%s %s]", pages[0].Title, pages[1].Title)
	}
}

func TestFlattenEmptyPageAndOptionlessQuestion(t *testing.T) {
	emptyPage := uuid.New()
	textPage := uuid.New()
	textQ := uuid.New()

	rows := []models.SurveyRow{
		{PageID: emptyPage, PageTitle: "empty", PageOrder: 0},
		{PageID: textPage, PageTitle: "text", PageOrder: 1, QuestionID: &textQ, QuestionType: typePtr(models.QuestionShort), QuestionOrder: intPtr(0)},
	}
	pages := Flatten(rows)
	if len(pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(pages))
	}
	if len(pages[0].Questions) != 0 {
		t.Errorf("empty page has %d questions", len(pages[0].Questions))
	}
	if len(pages[1].Questions) != 1 {
		t.Fatalf("text page has %d questions, want 1", len(pages[1].Questions))
	}
	if len(pages[1].Questions[0].Options) != 0 {
		t.Errorf("text question has %d options, want 0", len(pages[1].Questions[0].Options))
	}
}

func TestFlattenDeduplicatesRepeatedRows(t *testing.T) {
	pageID := uuid.New()
	questionID := uuid.New()
	optID := uuid.New()

	row := optionRow(pageID, 0, questionID, models.QuestionMultiple, 0, optID, "dup", 0)
	pages := Flatten([]models.SurveyRow{row, row, row})
	if len(pages) != 1 || len(pages[0].Questions) != 1 {
		t.Fatalf("dedup failed: %+v", pages)
	}
	if got := len(pages[0].Questions[0].Options); got != 1 {
		t.Errorf("options = %d, want 1", got)
	}
}

func TestFlattenIgnoresStrayOptionsOnTextQuestion(t *testing.T) {
	pageID := uuid.New()
	questionID := uuid.New()
	strayOpt := uuid.New()

	row := optionRow(pageID, 0, questionID, models.QuestionShort, 0, strayOpt, "stray", 0)
	pages := Flatten([]models.SurveyRow{row})
	if got := len(pages[0].Questions[0].Options); got != 0 {
		t.Errorf("stray options kept: %d", got)
	}
}

func TestFlattenUnwrapsOptionTitle(t *testing.T) {
	pageID := uuid.New()
	questionID := uuid.New()

	wrapped := optionRow(pageID, 0, questionID, models.QuestionSingle, 0, uuid.New(), `{"title":"Wrapped"}`, 0)
	malformed := optionRow(pageID, 0, questionID, models.QuestionSingle, 0, uuid.New(), `{"title":`, 1)
	plain := optionRow(pageID, 0, questionID, models.QuestionSingle, 0, uuid.New(), "Plain", 2)

	pages := Flatten([]models.SurveyRow{wrapped, malformed, plain})
	opts := pages[0].Questions[0].Options
	if len(opts) != 3 {
		t.Fatalf("options = %d, want 3", len(opts))
	}
	if opts[0].Text != "Wrapped" {
		t.Errorf("wrapped text = %q, want Wrapped", opts[0].Text)
	}
	if opts[1].Text != `{"title":` {
		t.Errorf("malformed text = %q, want raw fallback", opts[1].Text)
	}
	if opts[2].Text != "Plain" {
		t.Errorf("plain text = %q", opts[2].Text)
	}
}

func TestOptionTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"title":"Hello"}`, "Hello"},
		{`{"other":"x"}`, `{"other":"x"}`},
		{`not json`, "not json"},
		{``, ``},
		{`[1,2]`, `[1,2]`},
	}
	for _, c := range cases {
		if got := OptionTitle(c.in); got != c.want {
			t.Errorf("OptionTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	pageA := uuid.New()
	pageB := uuid.New()
	qChoice := uuid.New()
	qText := uuid.New()

	rows := []models.SurveyRow{
		optionRow(pageA, 0, qChoice, models.QuestionSingle, 0, uuid.New(), "one", 0),
		optionRow(pageA, 0, qChoice, models.QuestionSingle, 0, uuid.New(), "two", 1),
		{PageID: pageA, PageOrder: 0, QuestionID: &qText, QuestionType: typePtr(models.QuestionLong), QuestionRequired: boolPtr(true), QuestionOrder: intPtr(1)},
		{PageID: pageB, PageOrder: 1},
	}

	first := Flatten(rows)
	second := Flatten(Reflatten(first))

	if len(second) != len(first) {
		t.Fatalf("round trip pages = %d, want %d", len(second), len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID || len(first[i].Questions) != len(second[i].Questions) {
			t.Fatalf("page %d differs after round trip", i)
		}
		for j := range first[i].Questions {
			fq, sq := first[i].Questions[j], second[i].Questions[j]
			if fq.ID != sq.ID || fq.Type != sq.Type || fq.Required != sq.Required || len(fq.Options) != len(sq.Options) {
				t.Fatalf("question %d/%d differs after round trip", i, j)
			}
			for k := range fq.Options {
				if fq.Options[k].ID != sq.Options[k].ID || fq.Options[k].Text != sq.Options[k].Text {
					t.Fatalf("option %d/%d/%d differs after round trip", i, j, k)
				}
			}
		}
	}
}

func TestFlattenIdempotent(t *testing.T) {
	pageID := uuid.New()
	questionID := uuid.New()
	rows := []models.SurveyRow{
		optionRow(pageID, 0, questionID, models.QuestionMultiple, 0, uuid.New(), "a", 0),
		optionRow(pageID, 0, questionID, models.QuestionMultiple, 0, uuid.New(), "b", 1),
	}
	first := Flatten(rows)
	second := Flatten(rows)
	if len(first) != len(second) || len(first[0].Questions[0].Options) != len(second[0].Questions[0].Options) {
		t.Fatal("repeated flatten produced different trees")
	}
	for k := range first[0].Questions[0].Options {
		if first[0].Questions[0].Options[k] != second[0].Questions[0].Options[k] {
			t.Fatalf("option %d differs between passes", k)
		}
	}
}
