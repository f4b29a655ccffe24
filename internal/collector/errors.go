package collector

import "errors"

// ErrScrapeFailed marks a CLI or RPC scrape that exited nonzero or
// timed out for every device of a vendor this cycle. Absent or
// unsupported hardware is represented by a nil error and an empty
// slice instead, so callers can tell "nothing there" from "broken".
var ErrScrapeFailed = errors.New("collector: scrape failed")
