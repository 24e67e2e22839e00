package inmemory

import "time"

// timeNow is stubbed in tests.
var timeNow = time.Now
