package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// StaticDirectory is an in-memory label directory, typically loaded from a
// JSON file exported by the exam platform:
//
//	{"students": {"stu-1": "Ada Lovelace"}, "exams": {"exam-1": "Algebra I"}}
type StaticDirectory struct {
	Students map[string]string `json:"students"`
	Exams    map[string]string `json:"exams"`
}

// LoadDirectory reads a StaticDirectory from path.
func LoadDirectory(path string) (StaticDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StaticDirectory{}, fmt.Errorf("read directory: %w", err)
	}
	var d StaticDirectory
	if err := json.Unmarshal(raw, &d); err != nil {
		return StaticDirectory{}, fmt.Errorf("decode directory %s: %w", path, err)
	}
	return d, nil
}

func (d StaticDirectory) StudentName(_ context.Context, studentID string) string {
	return d.Students[studentID]
}

func (d StaticDirectory) ExamTitle(_ context.Context, examID string) string {
	return d.Exams[examID]
}
