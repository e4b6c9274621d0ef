package app

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"aic-scoring-service/internal/domain"
)

// Answer grammar for text-based task types. The QA answer part is free text,
// so it is matched lazily up to the identity tag.
var (
	qaPattern = regexp.MustCompile(`^QA-(.+?)-([A-Za-z0-9]+)_([A-Za-z0-9]+)-(.+)$`)
	trPattern = regexp.MustCompile(`^TR-([A-Za-z0-9]+)_([A-Za-z0-9]+)-(.+)$`)
)

// Normalize converts a raw submission into the ascending value space the
// evaluator compares against: milliseconds for KIS/QA, frame indices for TR.
// The scene/video identity embedded in the payload is checked against the
// question; any parse or identity failure returns an error wrapping
// domain.ErrMalformedSubmission.
func Normalize(question domain.Question, sub domain.Submission) ([]int, error) {
	answers := firstAnswerSet(sub)
	if len(answers) == 0 {
		return nil, malformed("no answers provided in answerSets")
	}

	switch question.Type {
	case domain.TaskKIS:
		return normalizeKIS(question, answers)
	case domain.TaskQA:
		return normalizeQA(question, answers)
	case domain.TaskTR:
		return normalizeTR(question, answers)
	}
	return nil, malformed("unknown task type %q", question.Type)
}

func firstAnswerSet(sub domain.Submission) []domain.Answer {
	if len(sub.AnswerSets) == 0 {
		return nil
	}
	return sub.AnswerSets[0].Answers
}

// normalizeKIS takes one discrete point per answer, using the answer's start
// time in milliseconds.
func normalizeKIS(question domain.Question, answers []domain.Answer) ([]int, error) {
	values := make([]int, 0, len(answers))
	identityChecked := false

	for _, answer := range answers {
		media := strings.TrimSpace(answer.MediaItemName)
		if !identityChecked {
			scene, video, ok := splitMediaItem(media)
			if !ok {
				return nil, malformed("invalid mediaItemName %q, expected <SCENE>_<VIDEO>", media)
			}
			if err := checkIdentity(question, scene, video); err != nil {
				return nil, err
			}
			identityChecked = true
		}

		start := strings.TrimSpace(answer.Start)
		if start == "" {
			continue
		}
		ms, err := strconv.Atoi(start)
		if err != nil {
			return nil, malformed("non-numeric start %q", start)
		}
		values = append(values, ms)
	}

	if !identityChecked {
		return nil, malformed("no mediaItemName found in KIS answers")
	}
	if len(values) == 0 {
		return nil, malformed("no timestamp values in KIS answers")
	}
	return values, nil
}

// normalizeQA parses QA-<ANSWER>-<SCENE>_<VIDEO>-<MS,...> texts. Values from
// all answers are concatenated; every answer must carry the same identity.
func normalizeQA(question domain.Question, answers []domain.Answer) ([]int, error) {
	var values []int

	for _, answer := range answers {
		text := strings.TrimSpace(answer.Text)
		m := qaPattern.FindStringSubmatch(text)
		if m == nil {
			return nil, malformed("invalid QA answer %q, expected QA-<ANSWER>-<SCENE>_<VIDEO>-<MS>", text)
		}
		if err := checkIdentity(question, m[2], m[3]); err != nil {
			return nil, err
		}
		parsed, err := parseValueList(m[4])
		if err != nil {
			return nil, err
		}
		values = append(values, parsed...)
	}

	if len(values) == 0 {
		return nil, malformed("no timestamp values in QA answers")
	}
	return values, nil
}

// normalizeTR parses a single TR-<SCENE>_<VIDEO>-<FRAME,...> text.
func normalizeTR(question domain.Question, answers []domain.Answer) ([]int, error) {
	if len(answers) != 1 {
		return nil, malformed("TR expects exactly 1 answer with comma-separated frame ids, got %d", len(answers))
	}
	text := strings.TrimSpace(answers[0].Text)
	m := trPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, malformed("invalid TR answer %q, expected TR-<SCENE>_<VIDEO>-<FRAMES>", text)
	}
	if err := checkIdentity(question, m[1], m[2]); err != nil {
		return nil, err
	}
	values, err := parseValueList(m[3])
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, malformed("no frame ids in TR answer")
	}
	return values, nil
}

func splitMediaItem(media string) (scene, video string, ok bool) {
	idx := strings.Index(media, "_")
	if idx <= 0 || idx == len(media)-1 {
		return "", "", false
	}
	return media[:idx], media[idx+1:], true
}

func checkIdentity(question domain.Question, scene, video string) error {
	if scene != question.SceneID || video != question.VideoID {
		return fmt.Errorf("%w: %w: got %s_%s, want %s_%s",
			domain.ErrMalformedSubmission, domain.ErrIdentityMismatch,
			scene, video, question.SceneID, question.VideoID)
	}
	return nil
}

func parseValueList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, malformed("non-numeric value %q", part)
		}
		values = append(values, v)
	}
	return values, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedSubmission, fmt.Sprintf(format, args...))
}
