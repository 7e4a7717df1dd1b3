package forecastcache

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	fieldDelimiter = ","
	fieldCount     = 4

	// Longer lines are counted as malformed and skipped.
	maxLineLength = 64 * 1024
)

// The producer may append a time of day after the date; it is ignored.
var datePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[ T].*)?$`)

// ParseOptions controls row decoding
type ParseOptions struct {
	// Strict rejects rows whose high, low or rating field is not a number.
	// When false such fields decode as 0.
	Strict bool
}

// ParseSource scans every line of r and returns the last row in file order
// whose date is not after now. Rows are not sorted: the file is trusted to be
// in append order. Undecodable rows are skipped.
func ParseSource(r io.Reader, now time.Time, opts ParseOptions) (Record, error) {
	var (
		selected                 Record
		found                    bool
		lines, malformed, future int
	)

	br := bufio.NewReader(r)
	for {
		line, oversized, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return Record{}, errors.Wrapf(ErrSourceUnavailable, "failed to read source after %d lines: %v", lines, err)
		}
		lines++
		if oversized {
			malformed++
			continue
		}

		record, err := ParseRow(line, now.Location(), opts)
		if err != nil {
			malformed++
			continue
		}
		if record.Timestamp.After(now) {
			future++
			continue
		}
		selected = record
		found = true
	}

	if !found {
		return Record{}, errors.Wrapf(ErrEmptySource, "no candidate row among %d lines (%d malformed, %d future)", lines, malformed, future)
	}
	return selected, nil
}

// readLine returns the next line without its line ending. A line longer than
// maxLineLength is drained and reported as oversized. io.EOF is returned only
// when no bytes remain.
func readLine(br *bufio.Reader) (string, bool, error) {
	var (
		buf       []byte
		oversized bool
		read      bool
	)
	for {
		fragment, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && read {
				return string(buf), oversized, nil
			}
			return "", false, err
		}
		read = true
		if !oversized {
			if len(buf)+len(fragment) > maxLineLength {
				oversized = true
				buf = nil
			} else {
				buf = append(buf, fragment...)
			}
		}
		if !isPrefix {
			return string(buf), oversized, nil
		}
	}
}

// ParseRow decodes one date,high,low,rating line. The date becomes midnight in loc.
func ParseRow(line string, loc *time.Location, opts ParseOptions) (Record, error) {
	fields := strings.Split(line, fieldDelimiter)
	if len(fields) != fieldCount {
		return Record{}, errors.Wrapf(ErrMalformedRow, "expected %d fields, got %d", fieldCount, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	ts, err := parseDate(fields[0], loc)
	if err != nil {
		return Record{}, err
	}

	high, err := parseDecimal(fields[1], "high", opts)
	if err != nil {
		return Record{}, err
	}
	low, err := parseDecimal(fields[2], "low", opts)
	if err != nil {
		return Record{}, err
	}
	rating, err := parseRating(fields[3], opts)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Timestamp: ts,
		High:      high,
		Low:       low,
		Rating:    rating,
	}, nil
}

func parseDate(field string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	m := datePattern.FindStringSubmatch(field)
	if m == nil {
		return time.Time{}, errors.Wrapf(ErrMalformedRow, "date %q does not match YYYY-MM-DD", field)
	}

	// The pattern guarantees digits, so these conversions cannot fail.
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	ts := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day {
		return time.Time{}, errors.Wrapf(ErrMalformedRow, "date %q is not a calendar date", field)
	}
	// 0001-01-01 is the zero time, the timestamp of the no-data record.
	if year == 1 && month == 1 && day == 1 {
		return time.Time{}, errors.Wrapf(ErrMalformedRow, "date %q is the zero date", field)
	}
	return ts, nil
}

func parseDecimal(field, name string, opts ParseOptions) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		if opts.Strict {
			return 0, errors.Wrapf(ErrMalformedRow, "%s %q is not a decimal", name, field)
		}
		return 0, nil
	}
	return v, nil
}

func parseRating(field string, opts ParseOptions) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		if opts.Strict {
			return 0, errors.Wrapf(ErrMalformedRow, "rating %q is not an integer", field)
		}
		return 0, nil
	}
	return v, nil
}
