package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength matches the size of the labels.text column.
const MaxLabelLength = 255

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidImage = errors.New("invalid image")
)

// DefaultCandidateLabels are the tissue classes scored when a submission names none.
var DefaultCandidateLabels = []string{
	"adipose",
	"background",
	"debris",
	"lymphocytes",
	"mucus",
	"smooth muscle",
	"normal colon mucosa",
	"cancer-associated stroma",
	"colorectal adenocarcinoma epithelium",
}

// ResolveCandidateLabels splits a comma-delimited label string, trimming entries and dropping
// blanks and repeats. Input with no usable entry resolves to DefaultCandidateLabels.
func ResolveCandidateLabels(raw string) ([]string, error) {
	var labels []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		if utf8.RuneCountInString(label) > MaxLabelLength {
			return nil, fmt.Errorf("%w: label longer than %d characters", ErrInvalidInput, MaxLabelLength)
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return append([]string(nil), DefaultCandidateLabels...), nil
	}
	return labels, nil
}

// normalizeExpectedLabel trims the expected label. Blank means none.
func normalizeExpectedLabel(raw string) (string, error) {
	label := strings.TrimSpace(raw)
	if utf8.RuneCountInString(label) > MaxLabelLength {
		return "", fmt.Errorf("%w: expected label longer than %d characters", ErrInvalidInput, MaxLabelLength)
	}
	return label, nil
}
