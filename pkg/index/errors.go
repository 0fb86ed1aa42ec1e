package index

import "errors"

var (
	// ErrCacheEmpty indicates the index holds zero samples even after an
	// attempted load.
	ErrCacheEmpty = errors.New("kpindex: sample cache did not populate")
	// ErrSourceUnavailable indicates the sample source failed to load.
	ErrSourceUnavailable = errors.New("kpindex: sample source unavailable")
	// ErrBeforeEarliest indicates the query instant precedes the first
	// known sample.
	ErrBeforeEarliest = errors.New("kpindex: requested instant is before the earliest kp value")
	// ErrFutureTimestamp indicates the query instant is beyond both the
	// known range and the current wall-clock time.
	ErrFutureTimestamp = errors.New("kpindex: requested instant is in the future")
	// ErrLaterThanLatest indicates the query instant remains beyond the
	// known range even after a refresh.
	ErrLaterThanLatest = errors.New("kpindex: requested instant is later than the latest available kp value")
)
