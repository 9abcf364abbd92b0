package service

import "errors"

// Sentinel kinds for submission errors.
var (
	ErrChartNotFound     = errors.New("chart not in catalog")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrBadToken          = errors.New("unknown submission token")
)
