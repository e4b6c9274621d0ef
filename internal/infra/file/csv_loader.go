// Package file loads ground truth from the competition CSV hand-off format:
//
//	id,type,scene_id,video_id,points
//	1,KIS,L26,V017,"4890,5000,5001,5020"
//
// Points must be ascending with an even count; pairs form [start,end] events.
package file

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"aic-scoring-service/internal/domain"
)

// LoadCSV reads and validates the full ground-truth table.
func LoadCSV(path string) (map[string]domain.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ground truth: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // points column may be unquoted and spill

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("no ground truth rows in %s", path)
	}

	questions := make(map[string]domain.Question, len(records)-1)
	for _, record := range records[1:] {
		question, err := parseRow(record)
		if err != nil {
			return nil, err
		}
		questions[question.ID] = question
	}
	return questions, nil
}

func parseRow(record []string) (domain.Question, error) {
	if len(record) < 5 {
		return domain.Question{}, fmt.Errorf("ground truth row needs 5 columns, got %d", len(record))
	}

	id := strings.TrimSpace(record[0])
	taskType := domain.TaskType(strings.ToUpper(strings.TrimSpace(record[1])))
	if !taskType.Valid() {
		return domain.Question{}, fmt.Errorf("question %s: unknown task type %q", id, record[1])
	}

	// An unquoted points column spills into extra fields; rejoin them.
	pointsRaw := strings.Join(record[4:], ",")
	points, err := parsePoints(pointsRaw)
	if err != nil {
		return domain.Question{}, fmt.Errorf("question %s: %w", id, err)
	}
	if len(points)%2 != 0 {
		return domain.Question{}, fmt.Errorf("question %s: points count must be even, got %d", id, len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i] < points[i-1] {
			return domain.Question{}, fmt.Errorf("question %s: points must be ascending", id)
		}
	}

	return domain.Question{
		ID:      id,
		Type:    taskType,
		SceneID: strings.TrimSpace(record[2]),
		VideoID: strings.TrimSpace(record[3]),
		Points:  points,
	}, nil
}

func parsePoints(raw string) ([]int, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(raw), `"`), ",")
	points := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("non-numeric point %q", part)
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("empty points column")
	}
	return points, nil
}
