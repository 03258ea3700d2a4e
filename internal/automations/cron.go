// Package automations turns a list of scheduled shell-script jobs into an
// on-disk cron surface: per-id script files, enabled/disabled schedule
// directories, a combined schedule file, and a scheduler reload.
package automations

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type cronField struct {
	name     string
	min, max int
}

// fieldOrder is minute, hour, day-of-month, month, day-of-week — the
// standard 5-field cron layout. Day-of-week accepts both 0 and 7 for
// Sunday.
var fieldOrder = []cronField{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day of month", 1, 31},
	{"month", 1, 12},
	{"day of week", 0, 7},
}

const cronCharset = "0123456789*/,-"

// ValidateCronExpression checks expr against the 5-field grammar: exactly
// five whitespace-separated fields, each using only [0-9*/,-], numeric
// values within the field's range, step n with 1 <= n <= field-range, and
// ranges a-b with a <= b. The returned error's message is the literal,
// user-facing text this package's callers surface verbatim.
func ValidateCronExpression(expr string) error {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return errors.New("cron expression must have exactly 5 fields")
	}
	for i, part := range parts {
		if err := validateCronField(part, fieldOrder[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateCronField(raw string, field cronField) error {
	if raw == "" || strings.IndexFunc(raw, func(r rune) bool {
		return !strings.ContainsRune(cronCharset, r)
	}) >= 0 {
		return fmt.Errorf("invalid characters in %s field: %q", field.name, raw)
	}

	span := field.max - field.min + 1
	for _, term := range strings.Split(raw, ",") {
		base, step, hasStep := strings.Cut(term, "/")
		if hasStep {
			n, err := strconv.Atoi(step)
			if err != nil || n < 1 || n > span {
				return errors.New("invalid step value")
			}
		}
		if base == "*" {
			continue
		}
		if lo, hi, isRange := strings.Cut(base, "-"); isRange {
			a, errA := strconv.Atoi(lo)
			b, errB := strconv.Atoi(hi)
			if errA != nil || errB != nil {
				return fmt.Errorf("invalid characters in %s field: %q", field.name, raw)
			}
			if a < field.min || a > field.max || b < field.min || b > field.max || a > b {
				return errors.New("range out of bounds")
			}
			continue
		}
		v, err := strconv.Atoi(base)
		if err != nil {
			return fmt.Errorf("invalid characters in %s field: %q", field.name, raw)
		}
		if v < field.min || v > field.max {
			return fmt.Errorf("%s value out of range", field.name)
		}
	}
	return nil
}
