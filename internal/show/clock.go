// Package show plays an audio file while stepping a dance timeline on a
// pin bank, one pass at a time.
package show

import "time"

// Tick is the synchronization interval. Dance steps have one-second
// resolution and are advanced on wall-clock time, not on audio position,
// so scheduling latency accumulates over a pass.
const Tick = time.Second
