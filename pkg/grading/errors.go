package grading

import "errors"

// ErrInvalidPoints is returned when a question's point value is not a positive integer.
var ErrInvalidPoints = errors.New("question points must be a positive integer")

// ErrNoCandidates is returned when a grading run is started without any answers.
var ErrNoCandidates = errors.New("no candidate answers to grade")
