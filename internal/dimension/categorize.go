//-------------------------------------------------------------------------
//
// pgEdge Star Loader
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package dimension

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/pgEdge/pgedge-starload/internal/keys"
)

// Unknown labels a derived attribute that cannot be computed.
const Unknown = "Unknown"

// regions maps Brazilian states to their macro-region.
var regions = map[string]string{
	"AC": "North", "AP": "North", "AM": "North", "PA": "North",
	"RO": "North", "RR": "North", "TO": "North",
	"AL": "Northeast", "BA": "Northeast", "CE": "Northeast", "MA": "Northeast",
	"PB": "Northeast", "PE": "Northeast", "PI": "Northeast", "RN": "Northeast",
	"SE": "Northeast",
	"DF": "Central-West", "GO": "Central-West", "MT": "Central-West", "MS": "Central-West",
	"ES": "Southeast", "MG": "Southeast", "RJ": "Southeast", "SP": "Southeast",
	"PR": "South", "RS": "South", "SC": "South",
}

// Region returns the macro-region of a state code.
func Region(state string) string {
	if r, ok := regions[state]; ok {
		return r
	}
	return Unknown
}

// CitySize buckets a city by population.
func CitySize(population *int64) string {
	if population == nil {
		return Unknown
	}
	switch p := *population; {
	case p >= 1_000_000:
		return "Metropolis"
	case p >= 500_000:
		return "Large"
	case p >= 100_000:
		return "Medium"
	case p >= 20_000:
		return "Small"
	default:
		return "Village"
	}
}

// DevelopmentLevel buckets a city by its human development index.
func DevelopmentLevel(hdi *float64) string {
	if hdi == nil {
		return Unknown
	}
	switch h := *hdi; {
	case h >= 0.8:
		return "Very High"
	case h >= 0.7:
		return "High"
	case h >= 0.555:
		return "Medium"
	default:
		return "Low"
	}
}

// PaymentCategory returns the display category of a payment type and
// whether it is a credit payment.
func PaymentCategory(paymentType string) (string, bool) {
	switch paymentType {
	case "credit_card":
		return "Credit Card", true
	case "boleto":
		return "Boleto", false
	case "voucher":
		return "Voucher", false
	case "debit_card":
		return "Debit Card", false
	default:
		return "Other", false
	}
}

// InstallmentsRange buckets an installment count. Counts below one are
// rejected by the decoder and never reach this function.
func InstallmentsRange(n int) string {
	switch {
	case n <= 1:
		return "1 installment"
	case n <= 3:
		return "2-3 installments"
	case n <= 6:
		return "4-6 installments"
	case n <= 12:
		return "7-12 installments"
	default:
		return "13+ installments"
	}
}

// PaymentBusinessKey is the payment dimension's business key.
func PaymentBusinessKey(paymentType string, installments int) string {
	return paymentType + "|" + InstallmentsRange(installments)
}

// ReviewCategory returns the review category and satisfaction level of a
// score between 1 and 5.
func ReviewCategory(score int) (string, string) {
	switch {
	case score <= 2:
		return "Negative", "Unsatisfied"
	case score == 3:
		return "Neutral", "Neutral"
	default:
		return "Positive", "Satisfied"
	}
}

// No review labels.
const (
	NoReviewCategory = "No Review"
	NoComment        = "No Comment"
)

// NoReviewKey is the review business key of an order without reviews.
const NoReviewKey = NoReviewCategory + "|" + NoComment

// CommentLength buckets a review comment by its length in characters.
func CommentLength(comment string) string {
	n := utf8.RuneCountInString(comment)
	switch {
	case n == 0:
		return NoComment
	case n < 30:
		return "Short (<30)"
	case n < 50:
		return "Medium (30-49)"
	case n < 100:
		return "Long (50-99)"
	case n < 200:
		return "Very Long (100-199)"
	default:
		return "Extremely Long (200+)"
	}
}

// ReviewBusinessKey is the review dimension's business key.
func ReviewBusinessKey(score int, comment string) string {
	category, _ := ReviewCategory(score)
	return category + "|" + CommentLength(comment)
}

// DateLayout formats the time dimension's business key.
const DateLayout = "2006-01-02"

// TimeBusinessKey is the time dimension's business key for the day of t.
func TimeBusinessKey(t time.Time) string {
	return t.Format(DateLayout)
}

// TimeKey is the deterministic YYYYMMDD surrogate key of the day of t.
func TimeKey(t time.Time) keys.Key {
	return keys.Key(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// QuarterName formats a quarter as "Q1".."Q4".
func QuarterName(q int) string {
	return fmt.Sprintf("Q%d", q)
}
