package rules

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/refdata"
	"rxsentinel/arbiter/pkg/verdict"
)

// deaPattern is the registration number shape: registrant type letter,
// surname initial, seven digits.
var deaPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{7}$`)

// DEAEvaluator validates the prescriber's DEA registration for controlled
// substances. The structural checks (format and check digit) run offline;
// standing, surname, and schedule authority come from the registry record.
type DEAEvaluator struct {
	src refdata.Source
}

// NewDEAEvaluator creates a DEA evaluator backed by src.
func NewDEAEvaluator(src refdata.Source) *DEAEvaluator {
	return &DEAEvaluator{src: src}
}

func (e *DEAEvaluator) ID() string { return IDDEA }

// ControlledOnly is the DEA evaluator's applicability predicate.
func ControlledOnly(c *dispensing.Case) bool {
	return c.Drug.Schedule.Controlled()
}

func (e *DEAEvaluator) Evaluate(ctx context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	number := c.Prescriber.DEANumber

	if !deaPattern.MatchString(number) {
		return block(IDDEA, CodeDEAMalformed,
			fmt.Sprintf("DEA number %q does not match the two-letter seven-digit format", number),
			severityDEAMalformed), nil
	}
	if !deaCheckDigitValid(number) {
		return block(IDDEA, CodeDEAChecksum,
			fmt.Sprintf("DEA number %s fails its check digit", number),
			severityDEAChecksum), nil
	}

	reg, err := e.src.DEARegistration(ctx, number)
	if err != nil {
		var nf *refdata.NotFoundError
		if errors.As(err, &nf) {
			return block(IDDEA, CodeDEANotFound,
				fmt.Sprintf("DEA number %s is not on file with the registry", number),
				severityDEANotFound), nil
		}
		return verdict.Verdict{}, err
	}

	switch reg.Status {
	case refdata.StatusSuspended, refdata.StatusRevoked:
		return block(IDDEA, CodeDEAInactive,
			fmt.Sprintf("DEA registration %s is %s", number, reg.Status),
			severityDEAInactive), nil
	case refdata.StatusExpired:
		return block(IDDEA, CodeDEAExpired,
			fmt.Sprintf("DEA registration %s is expired", number),
			severityDEAExpired), nil
	}
	if !reg.ExpiresAt.IsZero() && reg.ExpiresAt.Before(c.FillDate) {
		return block(IDDEA, CodeDEAExpired,
			fmt.Sprintf("DEA registration %s expired %s, before the fill date %s",
				number,
				reg.ExpiresAt.UTC().Format("2006-01-02"),
				c.FillDate.UTC().Format("2006-01-02")),
			severityDEAExpired), nil
	}

	if reg.RegistrantLastName == "" {
		return block(IDDEA, CodeDEASurname,
			fmt.Sprintf("DEA number %s does not match registrant surname %q", number, reg.RegistrantLastName),
			severityDEASurname), nil
	}
	// The number's second character is the registrant's surname initial,
	// A-Z only. Surnames starting outside A-Z (e.g. "Álvarez") have no
	// defined mapping onto it and are not checked against it.
	initial, _ := utf8.DecodeRuneInString(reg.RegistrantLastName)
	initial = unicode.ToUpper(initial)
	if initial >= 'A' && initial <= 'Z' && byte(initial) != number[1] {
		return block(IDDEA, CodeDEASurname,
			fmt.Sprintf("DEA number %s does not match registrant surname %q", number, reg.RegistrantLastName),
			severityDEASurname), nil
	}

	schedule := string(c.Drug.Schedule)
	if !reg.Authorized(schedule) {
		return block(IDDEA, CodeDEAUnauthorized,
			fmt.Sprintf("DEA registration %s does not cover Schedule %s", number, schedule),
			severityDEAUnauthorized), nil
	}

	return pass(IDDEA, CodeDEAVerified,
		fmt.Sprintf("DEA registration %s is active and covers Schedule %s", number, schedule)), nil
}

// deaCheckDigitValid applies the DEA check: the sum of the first, third,
// and fifth digits plus twice the sum of the second, fourth, and sixth
// must end in the seventh digit. The number is already format-checked.
func deaCheckDigitValid(number string) bool {
	digits := number[2:]
	odd := int(digits[0]-'0') + int(digits[2]-'0') + int(digits[4]-'0')
	even := int(digits[1]-'0') + int(digits[3]-'0') + int(digits[5]-'0')
	check := (odd + 2*even) % 10
	return check == int(digits[6]-'0')
}
