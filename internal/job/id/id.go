// Package id names merge jobs and their output files.
package id

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generate returns a new job ID of the form merge-<unix seconds>-<8 hex>,
// e.g. merge-1701432000-a1b2c3d4.
func Generate() string {
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")
	return "merge-" + strconv.FormatInt(time.Now().Unix(), 10) + "-" + suffix
}

const outputLayout = "20060102-150405"

// OutputName returns the file name of a merge generated at t, e.g.
// merge-20240101-153000.mp4.
func OutputName(t time.Time) string {
	return "merge-" + t.Format(outputLayout) + ".mp4"
}
