package builder

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/formloom/backend/internal/models"
)

// OptionTitle unwraps option text that some clients store as a small
// JSON object with a "title" field. Anything that is not such an
// object is returned verbatim.
func OptionTitle(raw string) string {
	var wrapped struct {
		Title *string `json:"title"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil || wrapped.Title == nil {
		return raw
	}
	return *wrapped.Title
}

// Flatten builds the page tree from the flat left-joined rows of a
// survey detail query. Pages and questions are deduplicated by id in
// first-seen order; duplicate option rows for the same id are dropped.
// Rows with null question columns yield pages without questions, rows
// with null option columns yield questions without options. Stray
// option rows under a text-type question are ignored.
func Flatten(rows []models.SurveyRow) []models.Page {
	var pages []models.Page
	pageIndex := map[uuid.UUID]int{}
	questionIndex := map[uuid.UUID][2]int{} // question id -> page idx, question idx
	seenOptions := map[uuid.UUID]bool{}

	for _, row := range rows {
		pi, ok := pageIndex[row.PageID]
		if !ok {
			pages = append(pages, models.Page{
				ID:          row.PageID,
				Title:       row.PageTitle,
				Description: row.PageDescription,
				OrderIndex:  row.PageOrder,
				Questions:   []models.Question{},
			})
			pi = len(pages) - 1
			pageIndex[row.PageID] = pi
		}

		if row.QuestionID == nil {
			continue
		}
		qi := -1
		if loc, ok := questionIndex[*row.QuestionID]; ok {
			pi, qi = loc[0], loc[1]
		} else {
			q := models.Question{
				ID:      *row.QuestionID,
				PageID:  row.PageID,
				Options: []models.Option{},
			}
			if row.QuestionTitle != nil {
				q.Title = *row.QuestionTitle
			}
			if row.QuestionType != nil {
				q.Type = *row.QuestionType
			}
			if row.QuestionRequired != nil {
				q.Required = *row.QuestionRequired
			}
			if row.QuestionOrder != nil {
				q.OrderIndex = *row.QuestionOrder
			}
			q.Metadata = row.QuestionMetadata
			pages[pi].Questions = append(pages[pi].Questions, q)
			qi = len(pages[pi].Questions) - 1
			questionIndex[*row.QuestionID] = [2]int{pi, qi}
		}

		if row.OptionID == nil || seenOptions[*row.OptionID] {
			continue
		}
		question := &pages[pi].Questions[qi]
		if !question.Type.HasOptions() {
			continue
		}
		seenOptions[*row.OptionID] = true
		o := models.Option{
			ID:         *row.OptionID,
			QuestionID: *row.QuestionID,
		}
		if row.OptionText != nil {
			o.Text = OptionTitle(*row.OptionText)
		}
		if row.OptionOrder != nil {
			o.OrderIndex = *row.OptionOrder
		}
		question.Options = append(question.Options, o)
	}
	return pages
}

// Reflatten emits the flat row form of a page tree: one row per option,
// one row with null option columns per option-less question, one row
// with null question columns per empty page. Flatten(Reflatten(t))
// reproduces t for any tree Flatten can produce.
func Reflatten(pages []models.Page) []models.SurveyRow {
	var rows []models.SurveyRow
	for _, p := range pages {
		base := models.SurveyRow{
			PageID:          p.ID,
			PageTitle:       p.Title,
			PageDescription: p.Description,
			PageOrder:       p.OrderIndex,
		}
		if len(p.Questions) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, q := range p.Questions {
			q := q
			row := base
			row.QuestionID = &q.ID
			row.QuestionTitle = &q.Title
			row.QuestionType = &q.Type
			row.QuestionRequired = &q.Required
			row.QuestionOrder = &q.OrderIndex
			row.QuestionMetadata = q.Metadata
			if len(q.Options) == 0 {
				rows = append(rows, row)
				continue
			}
			for _, o := range q.Options {
				o := o
				optRow := row
				optRow.OptionID = &o.ID
				optRow.OptionText = &o.Text
				optRow.OptionOrder = &o.OrderIndex
				rows = append(rows, optRow)
			}
		}
	}
	return rows
}
