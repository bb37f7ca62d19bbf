package workflow

import "time"

type Context interface {
	Now() time.Time
	NewGUID() string
}
