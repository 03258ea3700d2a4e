package automations

import "testing"

func TestValidateCronExpressionFieldCount(t *testing.T) {
	err := ValidateCronExpression("* * * *")
	if err == nil {
		t.Fatalf("expected an error for a 4-field expression")
	}
	if got, want := err.Error(), "cron expression must have exactly 5 fields"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestValidateCronExpressionInvalidStep(t *testing.T) {
	err := ValidateCronExpression("*/0 * * * *")
	if err == nil {
		t.Fatalf("expected an error for a zero step")
	}
	if got, want := err.Error(), "invalid step value"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestValidateCronExpressionDayOfWeekSevenAccepted(t *testing.T) {
	if err := ValidateCronExpression("* * * * 7"); err != nil {
		t.Fatalf("expected 7 (Sunday alias) to be accepted, got %v", err)
	}
}

func TestValidateCronExpressionDayOfWeekEightRejected(t *testing.T) {
	err := ValidateCronExpression("* * * * 8")
	if err == nil {
		t.Fatalf("expected an error for day-of-week 8")
	}
	if got, want := err.Error(), "day of week value out of range"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestValidateCronExpressionAcceptsStandardForms(t *testing.T) {
	cases := []string{
		"* * * * *",
		"0 0 * * *",
		"*/15 * * * *",
		"0 9-17 * * 1-5",
		"30 2 1 1,6 *",
	}
	for _, expr := range cases {
		if err := ValidateCronExpression(expr); err != nil {
			t.Fatalf("ValidateCronExpression(%q) = %v, want nil", expr, err)
		}
	}
}

func TestValidateCronExpressionRejectsInvalidCharacters(t *testing.T) {
	err := ValidateCronExpression("* * * * mon")
	if err == nil {
		t.Fatalf("expected an error for non-numeric day-of-week text")
	}
	want := `invalid characters in day of week field: "mon"`
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestValidateCronExpressionRejectsBackwardsRange(t *testing.T) {
	err := ValidateCronExpression("* 17-9 * * *")
	if err == nil {
		t.Fatalf("expected an error for a backwards range")
	}
	if got, want := err.Error(), "range out of bounds"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestValidateCronExpressionRejectsOutOfBoundsRange(t *testing.T) {
	err := ValidateCronExpression("* 0-99 * * *")
	if err == nil {
		t.Fatalf("expected an error for an out-of-bounds range")
	}
	if got, want := err.Error(), "range out of bounds"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
