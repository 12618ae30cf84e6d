package utils

import (
	"fmt"
	"time"
)

// ZeroDurationPlaceholder stands in for steps that never ran.
const ZeroDurationPlaceholder = "-:--:--"

// FormatDuration renders d as h:mm:ss, rounded up to whole seconds so even
// instant steps show as having taken time.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}
