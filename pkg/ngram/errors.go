package ngram

import "errors"

var (
	// ErrInvalidWindowLength is returned by NewModel for a window length below 1.
	ErrInvalidWindowLength = errors.New("ngram: window length must be positive")
	// ErrInsufficientInput is returned by Train when the stream holds fewer
	// bytes than one window.
	ErrInsufficientInput = errors.New("ngram: training input shorter than window length")
	// ErrAlreadyTrained is returned by Train on a model that has finished training.
	ErrAlreadyTrained = errors.New("ngram: model already trained")
	// ErrIndexOutOfRange is returned by FrequencyTable.EntryAt.
	ErrIndexOutOfRange = errors.New("ngram: index out of range")
	// ErrEmptyTable is returned when normalizing or sampling a table with no entries.
	ErrEmptyTable = errors.New("ngram: frequency table is empty")
	// ErrNotNormalized is returned when sampling a table before Normalize.
	ErrNotNormalized = errors.New("ngram: frequency table not normalized")
)
