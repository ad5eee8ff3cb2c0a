package model

import "errors"

// ErrInvalidHeaders is returned when a table's columns cannot form a
// spreadsheet table.
var ErrInvalidHeaders = errors.New("invalid table headers")

// ErrUnknownStream is returned for an unrecognized stream name.
var ErrUnknownStream = errors.New("unknown stream kind")
