package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Int64List stores an ordered list of point values as a JSON text column.
// Used for placement tables (index 0 = placement 1).
type Int64List []int64

func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *Int64List) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// QuizQuestion is one entry of a quiz mission's question set. CorrectIndex
// points into Options and is never serialized to clients; the storage
// column keeps it via QuizQuestionInput.
type QuizQuestion struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"-"`
}

// QuizQuestionInput is the admin-facing and storage shape, with the
// answer included.
type QuizQuestionInput struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type QuizQuestionList []QuizQuestion

func (l QuizQuestionList) Value() (driver.Value, error) {
	rows := make([]QuizQuestionInput, len(l))
	for i, q := range l {
		rows[i] = QuizQuestionInput(q)
	}
	b, err := json.Marshal(rows)
	return string(b), err
}

func (l *QuizQuestionList) Scan(src interface{}) error {
	var rows []QuizQuestionInput
	if err := scanJSON(src, &rows); err != nil {
		return err
	}
	out := make(QuizQuestionList, len(rows))
	for i, r := range rows {
		out[i] = QuizQuestion(r)
	}
	*l = out
	return nil
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
