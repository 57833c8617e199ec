package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// Range is a byte range, inclusive on both ends, as HTTP defines it.
type Range struct {
	Start int64
	End   int64
}

func (r Range) ContentLength() int64 {
	return r.End - r.Start + 1
}

func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange interprets a Range request header against a file of the given
// size. Scrubbing in a review player sends single ranges, so multi-range
// requests are honored by their first range only. A missing header returns
// (nil, nil) meaning serve the whole file.
func ParseRange(header string, size int64) (*Range, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	if first, _, found := strings.Cut(spec, ","); found {
		spec = strings.TrimSpace(first)
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return nil, ErrInvalidRange
	}

	if startStr == "" {
		return parseSuffixRange(endStr, size)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrInvalidRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, ErrInvalidRange
		}
	}

	if start > end || start >= size {
		return nil, ErrUnsatisfiable
	}
	if end >= size {
		end = size - 1
	}
	return &Range{Start: start, End: end}, nil
}

// parseSuffixRange handles the "bytes=-N" form: the last N bytes of the file.
func parseSuffixRange(lenStr string, size int64) (*Range, error) {
	n, err := strconv.ParseInt(lenStr, 10, 64)
	if err != nil || n <= 0 {
		return nil, ErrInvalidRange
	}
	start := size - n
	if start < 0 {
		start = 0
	}
	if start >= size {
		return nil, ErrUnsatisfiable
	}
	return &Range{Start: start, End: size - 1}, nil
}
