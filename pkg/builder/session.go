package builder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

// PageNode is a page in the editable tree.
type PageNode struct {
	Ref         EntityRef
	Title       string
	Description string
	OrderIndex  int
	Questions   []*QuestionNode

	dirty map[string]any
}

// QuestionNode is a question in the editable tree.
type QuestionNode struct {
	Ref        EntityRef
	Title      string
	Type       models.QuestionType
	Required   bool
	OrderIndex int
	Metadata   map[string]any
	Options    []*OptionNode

	dirty map[string]any
}

// OptionNode is an option in the editable tree.
type OptionNode struct {
	Ref        EntityRef
	Text       string
	OrderIndex int
}

// Session owns the in-memory tree of one survey being edited and keeps
// it consistent with the backend. Every mutation validates its
// preconditions, applies an optimistic local change, performs the
// backend call, and on failure reverts the change before returning a
// CollaboratorError. The session is owned by a single goroutine;
// mutations are synchronous, so no two backend calls for the same tree
// are ever in flight at once.
type Session struct {
	collab Collaborator

	surveyRef   EntityRef
	Survey      models.Survey
	surveyDirty map[string]any

	pages []*PageNode
}

// NewSession creates an editing session for a survey that has not been
// saved yet. Pages cannot be added until SaveSurvey confirms it.
func NewSession(collab Collaborator) *Session {
	return &Session{
		collab:      collab,
		surveyRef:   NewPending(),
		surveyDirty: map[string]any{},
	}
}

// Load opens an editing session for an existing survey, fetching its
// detail rows and building the tree.
func Load(ctx context.Context, collab Collaborator, surveyID uuid.UUID) (*Session, error) {
	detail, err := collab.SurveyDetail(ctx, surveyID)
	if err != nil {
		return nil, collabErr("survey detail", err)
	}
	s := &Session{
		collab:      collab,
		surveyRef:   NewConfirmed(detail.Survey.ID),
		Survey:      detail.Survey,
		surveyDirty: map[string]any{},
	}
	for _, p := range Flatten(detail.Rows) {
		node := &PageNode{
			Ref:         NewConfirmed(p.ID),
			Title:       p.Title,
			Description: p.Description,
			OrderIndex:  p.OrderIndex,
		}
		for _, q := range p.Questions {
			qNode := &QuestionNode{
				Ref:        NewConfirmed(q.ID),
				Title:      q.Title,
				Type:       q.Type,
				Required:   q.Required,
				OrderIndex: q.OrderIndex,
				Metadata:   q.Metadata,
			}
			for _, o := range q.Options {
				qNode.Options = append(qNode.Options, &OptionNode{
					Ref:        NewConfirmed(o.ID),
					Text:       o.Text,
					OrderIndex: o.OrderIndex,
				})
			}
			node.Questions = append(node.Questions, qNode)
		}
		s.pages = append(s.pages, node)
	}
	return s, nil
}

// Pages returns the tree's page list in display order.
func (s *Session) Pages() []*PageNode { return s.pages }

// SurveyRef returns the survey's identity ref.
func (s *Session) SurveyRef() EntityRef { return s.surveyRef }

func (s *Session) findPage(id uuid.UUID) (int, *PageNode) {
	for i, p := range s.pages {
		if p.Ref.Local() == id {
			return i, p
		}
	}
	return -1, nil
}

func (s *Session) findQuestion(id uuid.UUID) (*PageNode, int, *QuestionNode) {
	for _, p := range s.pages {
		for i, q := range p.Questions {
			if q.Ref.Local() == id {
				return p, i, q
			}
		}
	}
	return nil, -1, nil
}

func (s *Session) findOption(id uuid.UUID) (*QuestionNode, int, *OptionNode) {
	for _, p := range s.pages {
		for _, q := range p.Questions {
			for i, o := range q.Options {
				if o.Ref.Local() == id {
					return q, i, o
				}
			}
		}
	}
	return nil, -1, nil
}

// SetSurveyField stages a local survey header change.
func (s *Session) SetSurveyField(field string, value any) error {
	switch field {
	case "title":
		s.Survey.Title = value.(string)
	case "subtitle":
		s.Survey.Subtitle = value.(string)
	case "description":
		s.Survey.Description = value.(string)
	case "background_color":
		s.Survey.BackgroundColor = value.(string)
	case "font":
		s.Survey.Font = value.(string)
	case "cover_image":
		s.Survey.CoverImage = value.(string)
	default:
		return fmt.Errorf("%w: survey field %q", ErrInvalidOperation, field)
	}
	s.surveyDirty[field] = value
	return nil
}

// SaveSurvey persists staged survey changes: a create for an unsaved
// survey, a partial update otherwise. Update failures leave the local
// values in place so the user's edits survive a flaky call.
func (s *Session) SaveSurvey(ctx context.Context) error {
	if s.surveyRef.Pending() {
		fields := map[string]any{"title": s.Survey.Title}
		for k, v := range s.surveyDirty {
			fields[k] = v
		}
		created, err := s.collab.CreateSurvey(ctx, fields)
		if err != nil {
			return collabErr("create survey", err)
		}
		s.surveyRef = NewConfirmed(created.ID)
		s.Survey.ID = created.ID
		s.Survey.UserID = created.UserID
		s.Survey.CreatedAt = created.CreatedAt
		s.Survey.UpdatedAt = created.UpdatedAt
		s.surveyDirty = map[string]any{}
		return nil
	}
	if len(s.surveyDirty) == 0 {
		return nil
	}
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	if _, err := s.collab.UpdateSurvey(ctx, surveyID, s.surveyDirty); err != nil {
		return collabErr("update survey", err)
	}
	s.surveyDirty = map[string]any{}
	return nil
}

// AddPage appends a page to the survey. The survey must be confirmed
// first; a failed backend call removes the optimistic page again.
func (s *Session) AddPage(ctx context.Context, title string) (*PageNode, error) {
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return nil, fmt.Errorf("%w: save the survey before adding pages", ErrPrerequisite)
	}

	node := &PageNode{
		Ref:        NewPending(),
		Title:      title,
		OrderIndex: len(s.pages),
	}
	s.pages = append(s.pages, node)

	created, err := s.collab.CreatePage(ctx, surveyID, map[string]any{"title": title})
	if err != nil {
		s.pages = s.pages[:len(s.pages)-1]
		return nil, collabErr("create page", err)
	}
	node.Ref = NewConfirmed(created.ID)
	node.OrderIndex = created.OrderIndex
	if node.dirty == nil || node.dirty["title"] == nil {
		node.Title = created.Title
	}
	if node.dirty == nil || node.dirty["description"] == nil {
		node.Description = created.Description
	}
	return node, nil
}

// SetPageField stages a local page change. Persisted by CommitPage,
// not on every keystroke.
func (s *Session) SetPageField(pageID uuid.UUID, field string, value any) error {
	_, node := s.findPage(pageID)
	if node == nil {
		return fmt.Errorf("%w: page %s", ErrNotFound, pageID)
	}
	switch field {
	case "title":
		node.Title = value.(string)
	case "description":
		node.Description = value.(string)
	default:
		return fmt.Errorf("%w: page field %q", ErrInvalidOperation, field)
	}
	if node.dirty == nil {
		node.dirty = map[string]any{}
	}
	node.dirty[field] = value
	return nil
}

// CommitPage pushes a page's staged changes to the backend.
func (s *Session) CommitPage(ctx context.Context, pageID uuid.UUID) error {
	_, node := s.findPage(pageID)
	if node == nil {
		return fmt.Errorf("%w: page %s", ErrNotFound, pageID)
	}
	if len(node.dirty) == 0 {
		return nil
	}
	id, err := node.Ref.Confirmed()
	if err != nil {
		return err
	}
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	if _, err := s.collab.UpdatePage(ctx, surveyID, id, node.dirty); err != nil {
		return collabErr("update page", err)
	}
	node.dirty = nil
	return nil
}

// DeletePage removes a page. A still-pending page is only removed
// locally; a confirmed page is removed optimistically and re-inserted
// at its original index if the backend call fails.
func (s *Session) DeletePage(ctx context.Context, pageID uuid.UUID) error {
	i, node := s.findPage(pageID)
	if node == nil {
		return fmt.Errorf("%w: page %s", ErrNotFound, pageID)
	}
	s.pages = append(s.pages[:i], s.pages[i+1:]...)
	if node.Ref.Pending() {
		return nil
	}
	id, _ := node.Ref.Confirmed()
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	if err := s.collab.DeletePage(ctx, surveyID, id); err != nil {
		s.pages = append(s.pages[:i], append([]*PageNode{node}, s.pages[i:]...)...)
		return collabErr("delete page", err)
	}
	return nil
}

// AddQuestion appends a question to a page. Choice types start with
// one empty option mirroring what the backend creates; the optimistic
// placeholders are replaced by the backend's canonical entities.
func (s *Session) AddQuestion(ctx context.Context, pageID uuid.UUID, title string, qType models.QuestionType) (*QuestionNode, error) {
	_, page := s.findPage(pageID)
	if page == nil {
		return nil, fmt.Errorf("%w: page %s", ErrNotFound, pageID)
	}
	pid, err := page.Ref.Confirmed()
	if err != nil {
		return nil, fmt.Errorf("%w: save the page before adding questions", ErrPrerequisite)
	}
	if !qType.Valid() {
		return nil, fmt.Errorf("%w: question type %q", ErrInvalidOperation, qType)
	}
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return nil, err
	}

	node := &QuestionNode{
		Ref:        NewPending(),
		Title:      title,
		Type:       qType,
		OrderIndex: len(page.Questions),
	}
	if qType.HasOptions() {
		node.Options = []*OptionNode{{Ref: NewPending()}}
	}
	page.Questions = append(page.Questions, node)

	created, err := s.collab.CreateQuestion(ctx, surveyID, pid, map[string]any{
		"title": title,
		"type":  string(qType),
	})
	if err != nil {
		page.Questions = page.Questions[:len(page.Questions)-1]
		return nil, collabErr("create question", err)
	}
	node.Ref = NewConfirmed(created.ID)
	node.OrderIndex = created.OrderIndex
	node.Required = created.Required
	node.Options = node.Options[:0]
	for _, o := range created.Options {
		node.Options = append(node.Options, &OptionNode{
			Ref:        NewConfirmed(o.ID),
			Text:       o.Text,
			OrderIndex: o.OrderIndex,
		})
	}
	return node, nil
}

// SetQuestionField stages a local question change. Persisted by
// CommitQuestion.
func (s *Session) SetQuestionField(questionID uuid.UUID, field string, value any) error {
	_, _, node := s.findQuestion(questionID)
	if node == nil {
		return fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}
	switch field {
	case "title":
		node.Title = value.(string)
	case "required":
		node.Required = value.(bool)
	case "metadata":
		node.Metadata = value.(map[string]any)
	default:
		return fmt.Errorf("%w: question field %q", ErrInvalidOperation, field)
	}
	if node.dirty == nil {
		node.dirty = map[string]any{}
	}
	node.dirty[field] = value
	return nil
}

// CommitQuestion pushes a question's staged changes to the backend.
func (s *Session) CommitQuestion(ctx context.Context, questionID uuid.UUID) error {
	_, _, node := s.findQuestion(questionID)
	if node == nil {
		return fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}
	if len(node.dirty) == 0 {
		return nil
	}
	id, err := node.Ref.Confirmed()
	if err != nil {
		return err
	}
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	if _, err := s.collab.UpdateQuestion(ctx, surveyID, id, node.dirty); err != nil {
		return collabErr("update question", err)
	}
	node.dirty = nil
	return nil
}

// DeleteQuestion removes a question, re-inserting it at its original
// index when the backend call fails.
func (s *Session) DeleteQuestion(ctx context.Context, questionID uuid.UUID) error {
	page, i, node := s.findQuestion(questionID)
	if node == nil {
		return fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}
	page.Questions = append(page.Questions[:i], page.Questions[i+1:]...)
	if node.Ref.Pending() {
		return nil
	}
	id, _ := node.Ref.Confirmed()
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	if err := s.collab.DeleteQuestion(ctx, surveyID, id); err != nil {
		page.Questions = append(page.Questions[:i], append([]*QuestionNode{node}, page.Questions[i:]...)...)
		return collabErr("delete question", err)
	}
	return nil
}

// AddOption appends an option to a choice question. Text questions
// reject the operation before any local change is made.
func (s *Session) AddOption(ctx context.Context, questionID uuid.UUID, text string) (*OptionNode, error) {
	_, _, question := s.findQuestion(questionID)
	if question == nil {
		return nil, fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}
	if !question.Type.HasOptions() {
		return nil, fmt.Errorf("%w: %s questions have no options", ErrInvalidOperation, question.Type)
	}
	qid, err := question.Ref.Confirmed()
	if err != nil {
		return nil, fmt.Errorf("%w: save the question before adding options", ErrPrerequisite)
	}
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return nil, err
	}

	node := &OptionNode{
		Ref:        NewPending(),
		Text:       text,
		OrderIndex: len(question.Options),
	}
	question.Options = append(question.Options, node)

	created, err := s.collab.CreateOption(ctx, surveyID, qid, text)
	if err != nil {
		question.Options = question.Options[:len(question.Options)-1]
		return nil, collabErr("create option", err)
	}
	node.Ref = NewConfirmed(created.ID)
	node.Text = created.Text
	node.OrderIndex = created.OrderIndex
	return node, nil
}

// UpdateOption sets an option's text and persists it immediately.
// Option edits are small and infrequent enough that no staged-commit
// split is needed. A failed call leaves the local text in place.
func (s *Session) UpdateOption(ctx context.Context, optionID uuid.UUID, text string) error {
	_, _, node := s.findOption(optionID)
	if node == nil {
		return fmt.Errorf("%w: option %s", ErrNotFound, optionID)
	}
	id, err := node.Ref.Confirmed()
	if err != nil {
		return err
	}
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	node.Text = text
	if _, err := s.collab.UpdateOption(ctx, surveyID, id, text); err != nil {
		return collabErr("update option", err)
	}
	return nil
}

// DeleteOption removes an option, re-inserting it at its original
// index when the backend call fails.
func (s *Session) DeleteOption(ctx context.Context, optionID uuid.UUID) error {
	question, i, node := s.findOption(optionID)
	if node == nil {
		return fmt.Errorf("%w: option %s", ErrNotFound, optionID)
	}
	question.Options = append(question.Options[:i], question.Options[i+1:]...)
	if node.Ref.Pending() {
		return nil
	}
	id, _ := node.Ref.Confirmed()
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	if err := s.collab.DeleteOption(ctx, surveyID, id); err != nil {
		question.Options = append(question.Options[:i], append([]*OptionNode{node}, question.Options[i:]...)...)
		return collabErr("delete option", err)
	}
	return nil
}
