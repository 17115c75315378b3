package onedrive

import "time"

var nowFunc = defaultNow

func defaultNow() time.Time { return time.Now() }
