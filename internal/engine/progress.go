package engine

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// readProgress consumes ffmpeg `-progress` output from r until EOF and
// reports the completed fraction of total. Reported values never decrease and
// stay within [0, 1].
func readProgress(r io.Reader, total time.Duration, report func(float64)) {
	scanner := bufio.NewScanner(r)
	last := 0.0
	emit := func(p float64) {
		if p > 1 {
			p = 1
		}
		if p > last {
			last = p
			report(p)
		}
	}

	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		// out_time_ms is in microseconds as well.
		case "out_time_us", "out_time_ms":
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil || us < 0 || total <= 0 {
				continue
			}
			emit(float64(time.Duration(us)*time.Microsecond) / float64(total))
		case "progress":
			if value == "end" {
				emit(1)
			}
		}
	}

	// Keep draining so the writer never blocks.
	_, _ = io.Copy(io.Discard, r)
}
