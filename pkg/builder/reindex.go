package builder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

// buildOrder maps the full reordered id sequence onto the current
// sibling set. Every id must name a distinct confirmed sibling and the
// sequence must cover the whole set; every sibling gets its position's
// index unconditionally. Sibling counts are small, so no minimal-diff
// attempt is made.
func buildOrder[N any](orderedIDs []uuid.UUID, siblings []*N, localID func(*N) uuid.UUID, confirmedID func(*N) (uuid.UUID, error)) ([]*N, []models.OrderUpdate, error) {
	if len(orderedIDs) != len(siblings) {
		return nil, nil, fmt.Errorf("%w: reorder must name all %d siblings", ErrInvalidOperation, len(siblings))
	}
	byID := make(map[uuid.UUID]*N, len(siblings))
	for _, n := range siblings {
		byID[localID(n)] = n
	}
	reordered := make([]*N, 0, len(orderedIDs))
	updates := make([]models.OrderUpdate, 0, len(orderedIDs))
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for i, id := range orderedIDs {
		if seen[id] {
			return nil, nil, fmt.Errorf("%w: duplicate id %s in reorder", ErrInvalidOperation, id)
		}
		seen[id] = true
		n, ok := byID[id]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		confirmed, err := confirmedID(n)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: cannot reorder unsaved entity %s", ErrPrerequisite, id)
		}
		reordered = append(reordered, n)
		updates = append(updates, models.OrderUpdate{ID: confirmed, OrderIndex: i})
	}
	return reordered, updates, nil
}

// ReorderPages moves the survey's pages into the given full order and
// persists the whole batch atomically. If the backend rejects the
// batch, the local order is restored to its pre-reorder state.
func (s *Session) ReorderPages(ctx context.Context, orderedIDs []uuid.UUID) error {
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	reordered, updates, err := buildOrder(orderedIDs, s.pages,
		func(p *PageNode) uuid.UUID { return p.Ref.Local() },
		func(p *PageNode) (uuid.UUID, error) { return p.Ref.Confirmed() })
	if err != nil {
		return err
	}

	prev := s.pages
	prevIndexes := make([]int, len(prev))
	for i, p := range prev {
		prevIndexes[i] = p.OrderIndex
	}
	s.pages = reordered
	for i, p := range s.pages {
		p.OrderIndex = i
	}

	if err := s.collab.ReorderPages(ctx, surveyID, updates); err != nil {
		s.pages = prev
		for i, p := range prev {
			p.OrderIndex = prevIndexes[i]
		}
		return collabErr("reorder pages", err)
	}
	return nil
}

// ReorderQuestions moves one page's questions into the given full
// order, with the same atomic batch and revert-on-failure semantics as
// ReorderPages.
func (s *Session) ReorderQuestions(ctx context.Context, pageID uuid.UUID, orderedIDs []uuid.UUID) error {
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	_, page := s.findPage(pageID)
	if page == nil {
		return fmt.Errorf("%w: page %s", ErrNotFound, pageID)
	}
	pid, err := page.Ref.Confirmed()
	if err != nil {
		return err
	}
	reordered, updates, err := buildOrder(orderedIDs, page.Questions,
		func(q *QuestionNode) uuid.UUID { return q.Ref.Local() },
		func(q *QuestionNode) (uuid.UUID, error) { return q.Ref.Confirmed() })
	if err != nil {
		return err
	}

	prev := page.Questions
	prevIndexes := make([]int, len(prev))
	for i, q := range prev {
		prevIndexes[i] = q.OrderIndex
	}
	page.Questions = reordered
	for i, q := range page.Questions {
		q.OrderIndex = i
	}

	if err := s.collab.ReorderQuestions(ctx, surveyID, pid, updates); err != nil {
		page.Questions = prev
		for i, q := range prev {
			q.OrderIndex = prevIndexes[i]
		}
		return collabErr("reorder questions", err)
	}
	return nil
}

// ReorderOptions moves one question's options into the given full
// order, with the same semantics as ReorderPages.
func (s *Session) ReorderOptions(ctx context.Context, questionID uuid.UUID, orderedIDs []uuid.UUID) error {
	surveyID, err := s.surveyRef.Confirmed()
	if err != nil {
		return err
	}
	_, _, question := s.findQuestion(questionID)
	if question == nil {
		return fmt.Errorf("%w: question %s", ErrNotFound, questionID)
	}
	qid, err := question.Ref.Confirmed()
	if err != nil {
		return err
	}
	reordered, updates, err := buildOrder(orderedIDs, question.Options,
		func(o *OptionNode) uuid.UUID { return o.Ref.Local() },
		func(o *OptionNode) (uuid.UUID, error) { return o.Ref.Confirmed() })
	if err != nil {
		return err
	}

	prev := question.Options
	prevIndexes := make([]int, len(prev))
	for i, o := range prev {
		prevIndexes[i] = o.OrderIndex
	}
	question.Options = reordered
	for i, o := range question.Options {
		o.OrderIndex = i
	}

	if err := s.collab.ReorderOptions(ctx, surveyID, qid, updates); err != nil {
		question.Options = prev
		for i, o := range prev {
			o.OrderIndex = prevIndexes[i]
		}
		return collabErr("reorder options", err)
	}
	return nil
}
