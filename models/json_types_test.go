package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestQuizQuestionAnswerHiddenFromJSON(t *testing.T) {
	qs := QuizQuestionList{
		{Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectIndex: 0},
	}
	b, err := json.Marshal(Mission{Type: MissionTypeQuiz, QuizQuestions: qs})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "correct_index") {
		t.Fatalf("correct_index leaked into API JSON: %s", b)
	}
	if !strings.Contains(string(b), "Capital of France?") {
		t.Fatalf("prompt missing from API JSON: %s", b)
	}
}

func TestQuizQuestionListStorageKeepsAnswer(t *testing.T) {
	qs := QuizQuestionList{
		{Prompt: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1},
	}
	v, err := qs.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	col, ok := v.(string)
	if !ok || !strings.Contains(col, `"correct_index":1`) {
		t.Fatalf("storage column lost the answer: %v", v)
	}

	var back QuizQuestionList
	if err := back.Scan(col); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(back) != 1 || back[0].CorrectIndex != 1 || back[0].Prompt != "2+2?" {
		t.Fatalf("round trip = %+v", back)
	}
}
