package feed

import "errors"

// Sentinel errors. Read never returns them; they surface from Fetch and Parse.
var (
	ErrFetch = errors.New("feed fetch failed")
	ErrParse = errors.New("feed parse failed")
)
