// Package money implements Amount, a fixed-point decimal value tagged with
// a currency code. It mirrors the arithmetic rules of the original C++
// MonetaryAmount: int64 mantissa, a per-value decimal count, saturating
// truncation instead of panicking on overflow, and a neutral currency used
// for dimensionless scalars (percentages, multipliers, ratios).
package money

import (
	"strconv"
	"strings"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
)

// maxDigits10 is the number of decimal digits an int64 mantissa can hold
// without any risk of overflow (one less than its maximum digit count).
const maxDigits10 = 18

// maxDoubleDecimals bounds the fixed-notation expansion used when building
// an Amount from a float64 (max_digits10 for IEEE 754 double precision).
const maxDoubleDecimals = 17

var pow10 = [...]int64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000,
	1_000_000_000, 10_000_000_000, 100_000_000_000, 1_000_000_000_000,
	10_000_000_000_000, 100_000_000_000_000, 1_000_000_000_000_000,
	10_000_000_000_000_000, 100_000_000_000_000_000, 1_000_000_000_000_000_000,
}

func ipow10(n int8) int64 {
	if n < 0 || int(n) >= len(pow10) {
		return pow10[len(pow10)-1]
	}
	return pow10[n]
}

func ndigits(v int64) int {
	if v < 0 {
		v = -v
	}
	if v == 0 {
		return 1
	}
	n := 0
	for v > 0 {
		n++
		v /= 10
	}
	return n
}

// RoundType selects the tie-breaking rule used by Amount.Round.
type RoundType int

const (
	RoundDown RoundType = iota
	RoundUp
	RoundNearest
)

// Amount is a fixed-point decimal tagged with a currency. Its zero value is
// zero of the neutral currency, the identity for Add and the scalar one for
// Mul.
type Amount struct {
	mantissa int64
	decimals int8
	cur      currency.Code
}

// New builds an Amount directly from its components, stripping any
// trailing-zero decimals so the minimal-decimals invariant holds. Callers
// should prefer Parse or FromFloat for untrusted input.
func New(mantissa int64, decimals int8, cur currency.Code) Amount {
	return Amount{mantissa: mantissa, decimals: decimals, cur: cur}.normalize()
}

// normalize strips trailing-zero decimal digits, keeping decimals minimal.
func (a Amount) normalize() Amount {
	for a.decimals > 0 && a.mantissa%10 == 0 {
		a.mantissa /= 10
		a.decimals--
	}
	return a
}

// Zero returns the zero amount of cur.
func Zero(cur currency.Code) Amount {
	return Amount{cur: cur}
}

func parseNegativeChar(s string) (neg bool, rest string, err error) {
	if s == "" {
		return false, s, nil
	}
	c := s[0]
	if c >= '0' {
		return false, s, nil
	}
	switch c {
	case '-':
		return true, strings.TrimLeft(s[1:], " "), nil
	case '+':
		return false, strings.TrimLeft(s[1:], " "), nil
	case '.':
		return false, s, nil
	default:
		return false, s, coinerr.New(coinerr.Parse, "unexpected first character '"+string(c)+"'")
	}
}

// parseIntegral mirrors AmountIntegralFromStr: it converts a trimmed numeric
// string into an integral mantissa plus a decimal count, optionally applying
// the heuristic rounding used when the string came from a float64.
func parseIntegral(s string, heuristicRoundingFromDouble bool) (int64, int8, error) {
	if s == "" {
		return 0, 0, nil
	}
	isNeg, s, err := parseNegativeChar(s)
	if err != nil {
		return 0, 0, err
	}

	dotPos := strings.IndexByte(s, '.')
	var integerPart, decPart int64
	var decimals int8
	var roundingUpNines int64

	if dotPos == -1 {
		integerPart, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, coinerr.Wrap(coinerr.Parse, "invalid integer amount "+s, err)
		}
	} else {
		s = strings.TrimRight(s, "0")
		if dotPos >= len(s) {
			// trimming consumed the entire decimal part, e.g. "3.000" -> "3."
			s = s[:dotPos]
		}
		if heuristicRoundingFromDouble && len(s)-dotPos-1 == maxDoubleDecimals {
			bestFindPos := -1
			roundingUp := false
			for _, pattern := range [2]string{"000", "999"} {
				findPos := strings.LastIndex(s, pattern)
				if findPos > dotPos {
					for findPos-1 > dotPos && s[findPos-1] == pattern[0] {
						findPos--
					}
					if s[findPos-1] == '.' {
						continue
					}
					if findPos > bestFindPos {
						bestFindPos = findPos
						roundingUp = pattern[0] == '9'
					}
				}
			}
			if bestFindPos > 0 {
				s = s[:bestFindPos]
				if roundingUp {
					roundingUpNines = 1
				}
			}
		}
		decimals = int8(len(s) - dotPos - 1)
		if len(s) > maxDigits10+1 {
			nbToRemove := len(s) - maxDigits10 - 1
			if int8(nbToRemove) > decimals {
				return 0, 0, coinerr.New(coinerr.Parse, "amount string "+s+" has an integral part that is too big")
			}
			s = s[:len(s)-nbToRemove]
			decimals -= int8(nbToRemove)
		}
		decPartStr := s[dotPos+1:]
		if decPartStr != "" {
			decPart, err = strconv.ParseInt(decPartStr, 10, 64)
			if err != nil {
				return 0, 0, coinerr.Wrap(coinerr.Parse, "invalid decimal part "+decPartStr, err)
			}
		}
		if dotPos > 0 {
			integerPart, err = strconv.ParseInt(s[:dotPos], 10, 64)
			if err != nil {
				return 0, 0, coinerr.Wrap(coinerr.Parse, "invalid integer part "+s[:dotPos], err)
			}
		}
	}

	mantissa := integerPart*ipow10(decimals) + decPart + roundingUpNines
	if isNeg {
		mantissa = -mantissa
	}
	return mantissa, decimals, nil
}

// Parse converts amountStr (no embedded currency, e.g. "1.50" or "-.5") into
// an Amount tagged with cur.
func Parse(amountStr string, cur currency.Code) (Amount, error) {
	mantissa, decimals, err := parseIntegral(strings.TrimSpace(amountStr), false)
	if err != nil {
		return Amount{}, err
	}
	return Amount{mantissa: mantissa, decimals: decimals, cur: cur}, nil
}

// ParseFull converts a string with an embedded currency code, such as
// "1250.5 KRW" or "0.00017 BTC", into an Amount.
func ParseFull(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] <= '9' {
		i++
	}
	amountPart := strings.TrimRight(s[:i], " ")
	curPart := strings.TrimSpace(s[i:])
	mantissa, decimals, err := parseIntegral(amountPart, false)
	if err != nil {
		return Amount{}, err
	}
	return Amount{mantissa: mantissa, decimals: decimals, cur: currency.New(curPart)}, nil
}

// FromFloat builds an Amount from a float64, applying the same heuristic
// rounding as the original implementation to absorb binary-to-decimal
// representation noise (runs of "000" or "999" at the max_digits10 limit).
func FromFloat(f float64, cur currency.Code) Amount {
	s := strconv.FormatFloat(f, 'f', maxDoubleDecimals, 64)
	mantissa, decimals, err := parseIntegral(s, true)
	if err != nil {
		// FormatFloat never produces a string parseIntegral should reject.
		return Amount{cur: cur}
	}
	return Amount{mantissa: mantissa, decimals: decimals, cur: cur}
}

// Currency returns the amount's currency code.
func (a Amount) Currency() currency.Code { return a.cur }

// Decimals returns the number of decimal digits of the mantissa.
func (a Amount) Decimals() int8 { return a.decimals }

// IsZero reports whether the amount is exactly zero, regardless of decimals.
func (a Amount) IsZero() bool { return a.mantissa == 0 }

// WithCurrency returns a with the same mantissa and decimals but re-tagged
// with cur. It does not convert the value; it only relabels it, for callers
// that have already computed a magnitude (e.g. a neutral ratio from a
// same-currency Div) and know which currency it denominates.
func (a Amount) WithCurrency(cur currency.Code) Amount {
	return Amount{mantissa: a.mantissa, decimals: a.decimals, cur: cur}
}

// AsNeutral returns a with the same mantissa and decimals but a neutral
// currency, turning it into a dimensionless scalar. Used to divide an
// amount by a plain count (e.g. total volume filled) without the
// same-currency-divide-yields-neutral rule discarding the dividend's
// currency.
func (a Amount) AsNeutral() Amount {
	return a.WithCurrency(currency.Neutral)
}

// Sign returns -1, 0 or 1.
func (a Amount) Sign() int {
	switch {
	case a.mantissa < 0:
		return -1
	case a.mantissa > 0:
		return 1
	default:
		return 0
	}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{mantissa: -a.mantissa, decimals: a.decimals, cur: a.cur}
}

// integerPart returns the integral part of the value, truncated toward zero.
func (a Amount) integerPart() int64 {
	return a.mantissa / ipow10(a.decimals)
}

// At returns the mantissa scaled to exactly nbDecimals decimals, and false if
// that scaling would overflow int64.
func (a Amount) At(nbDecimals int8) (int64, bool) {
	v := a.mantissa
	d := a.decimals
	for nbDecimals < d {
		v /= 10
		d--
	}
	for d < nbDecimals {
		if v > (1<<63-1)/10 || v < -(1<<63)/10 {
			return 0, false
		}
		v *= 10
		d++
	}
	return v, true
}

// Float64 returns a lossy float64 approximation of the amount.
func (a Amount) Float64() float64 {
	f, _ := strconv.ParseFloat(a.amountDigitsStr(), 64)
	return f
}

func (a Amount) amountDigitsStr() string {
	neg := a.mantissa < 0
	abs := a.mantissa
	if neg {
		abs = -abs
	}
	s := strconv.FormatInt(abs, 10)
	nbDigits := ndigits(a.mantissa)
	if int(a.decimals)+1 > nbDigits {
		s = strings.Repeat("0", int(a.decimals)+1-nbDigits) + s
	}
	if a.decimals > 0 {
		pos := len(s) - int(a.decimals)
		s = s[:pos] + "." + s[pos:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

// AmountString renders the numeric value without the currency suffix.
func (a Amount) AmountString() string { return a.amountDigitsStr() }

// String renders "<amount> <CUR>", omitting the currency when it is neutral.
func (a Amount) String() string {
	s := a.amountDigitsStr()
	if !a.cur.IsNeutral() {
		s += " " + a.cur.String()
	}
	return s
}

// safeConvertSameDecimals aligns lhs and rhs to a common decimal count,
// truncating the side with more decimals if expanding the other would
// overflow int64. Mirrors SafeConvertSameDecimals.
func safeConvertSameDecimals(lhsAmount, rhsAmount int64, lhsDec, rhsDec int8) (int64, int64, int8) {
	lhsDigits := ndigits(lhsAmount)
	rhsDigits := ndigits(rhsAmount)
	for lhsDec != rhsDec {
		if lhsDec < rhsDec {
			if lhsDigits < maxDigits10 {
				lhsDec++
				lhsDigits++
				lhsAmount *= 10
			} else {
				rhsDec--
				rhsDigits--
				rhsAmount /= 10
			}
		} else {
			if rhsDigits < maxDigits10 {
				rhsDec++
				rhsDigits++
				rhsAmount *= 10
			} else {
				lhsDec--
				lhsDigits--
				lhsAmount /= 10
			}
		}
	}
	return lhsAmount, rhsAmount, lhsDec
}

// Cmp compares a and o, which must share a currency, returning -1, 0 or 1.
func (a Amount) Cmp(o Amount) (int, error) {
	if a.cur != o.cur {
		return 0, coinerr.New(coinerr.CurrencyMismatch, "cannot compare "+a.cur.String()+" with "+o.cur.String())
	}
	if a.decimals == o.decimals {
		switch {
		case a.mantissa < o.mantissa:
			return -1, nil
		case a.mantissa > o.mantissa:
			return 1, nil
		default:
			return 0, nil
		}
	}
	lhsInt, rhsInt := a.integerPart(), o.integerPart()
	if lhsInt != rhsInt {
		if lhsInt < rhsInt {
			return -1, nil
		}
		return 1, nil
	}
	lhsAmount, rhsAmount := a.mantissa, o.mantissa
	for d := a.decimals; d < o.decimals; d++ {
		lhsAmount *= 10
	}
	for d := o.decimals; d < a.decimals; d++ {
		rhsAmount *= 10
	}
	switch {
	case lhsAmount < rhsAmount:
		return -1, nil
	case lhsAmount > rhsAmount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Equal reports whether a and o represent the same currency and value.
func (a Amount) Equal(o Amount) bool {
	c, err := a.Cmp(o)
	return err == nil && c == 0
}

// Add returns a+o. Both must share a currency. The result saturates to one
// fewer decimal when the sum would otherwise overflow int64.
func (a Amount) Add(o Amount) (Amount, error) {
	if a.cur != o.cur {
		return Amount{}, coinerr.New(coinerr.CurrencyMismatch, "cannot add "+a.cur.String()+" to "+o.cur.String())
	}
	lhs, rhs, dec := safeConvertSameDecimals(a.mantissa, o.mantissa, a.decimals, o.decimals)
	res := lhs + rhs
	const kMaxAmountFullNDigits = 1_000_000_000_000_000_000
	if res >= kMaxAmountFullNDigits || res <= -kMaxAmountFullNDigits {
		res /= 10
		dec--
	}
	return Amount{mantissa: res, decimals: dec, cur: a.cur}.normalize(), nil
}

// Sub returns a-o.
func (a Amount) Sub(o Amount) (Amount, error) {
	return a.Add(o.Neg())
}

// MulScalar returns a scaled by the plain integer mult, truncating decimals
// (and, as a last resort, integral digits) if the product would overflow.
func (a Amount) MulScalar(mult int64) Amount {
	amount := a.mantissa
	decimals := a.decimals
	if mult < -1 || mult > 1 {
		nbDigitsMult := ndigits(mult)
		nbDigitsAmount := ndigits(amount)
		nbToTruncate := nbDigitsAmount + nbDigitsMult - maxDigits10
		if nbToTruncate > 0 {
			if int(decimals) >= nbToTruncate {
				for nbToTruncate > 0 {
					decimals--
					amount /= 10
					nbToTruncate--
				}
			} else {
				for nbToTruncate > 0 {
					amount /= 10
					nbToTruncate--
				}
			}
		}
	}
	return Amount{mantissa: amount * mult, decimals: decimals, cur: a.cur}
}

// Mul returns a*o. One of the two currencies must be neutral; the result
// takes on the non-neutral currency (or stays neutral if both are). The
// digit budget of the two mantissas is capped at maxDigits10, truncating
// decimals preferentially over integral digits when it is exceeded.
func (a Amount) Mul(o Amount) (Amount, error) {
	if !a.cur.IsNeutral() && !o.cur.IsNeutral() {
		return Amount{}, coinerr.New(coinerr.NeutralRequired, "cannot multiply two non-neutral amounts")
	}
	resCur := a.cur
	if a.cur.IsNeutral() {
		resCur = o.cur
	}

	lhsAmount, rhsAmount := a.mantissa, o.mantissa
	lhsDec, rhsDec := a.decimals, o.decimals
	lhsDigits, rhsDigits := ndigits(lhsAmount), ndigits(rhsAmount)

	for lhsDigits+rhsDigits > maxDigits10 {
		if lhsDec == 0 && rhsDec == 0 {
			if lhsDigits < rhsDigits {
				rhsDigits--
				rhsAmount /= 10
			} else {
				lhsDigits--
				lhsAmount /= 10
			}
			continue
		}
		if lhsAmount%10 == 0 || (rhsAmount%10 != 0 && rhsDec < lhsDec) {
			lhsDec--
			lhsDigits--
			lhsAmount /= 10
		} else {
			rhsDec--
			rhsDigits--
			rhsAmount /= 10
		}
	}

	return Amount{mantissa: lhsAmount * rhsAmount, decimals: lhsDec + rhsDec, cur: resCur}.normalize(), nil
}

// ConvertAtPrice multiplies a volume by a price quoted in the destination
// currency (e.g. an order book level), producing an amount in that
// currency. Unlike Mul, both operands may carry a non-neutral currency:
// volume's own currency is informational only, the result always takes on
// price's currency. This is the multiplication used by order book
// conversions (best_ask/best_bid walks), not the strict scalar Mul.
func (volume Amount) ConvertAtPrice(price Amount) Amount {
	neutralVolume := Amount{mantissa: volume.mantissa, decimals: volume.decimals, cur: currency.Neutral}
	res, err := neutralVolume.Mul(price)
	if err != nil {
		// Mul only fails when both sides are non-neutral, which cannot
		// happen here since neutralVolume always carries Neutral.
		panic(err)
	}
	return res
}

// Div returns a/o. If both currencies are non-neutral they must match, and
// the result is a neutral ratio; otherwise the result takes on whichever
// side carries the non-neutral currency.
func (a Amount) Div(o Amount) (Amount, error) {
	if o.mantissa == 0 {
		return Amount{}, coinerr.New(coinerr.InvalidArgument, "division by zero")
	}
	var resCur currency.Code
	if !a.cur.IsNeutral() && !o.cur.IsNeutral() {
		if a.cur != o.cur {
			return Amount{}, coinerr.New(coinerr.CurrencyMismatch, "cannot divide "+a.cur.String()+" by "+o.cur.String())
		}
		resCur = currency.Neutral
	} else if a.cur.IsNeutral() {
		resCur = o.cur
	} else {
		resCur = a.cur
	}

	negMult := int64(1)
	if (a.mantissa < 0) != (o.mantissa < 0) {
		negMult = -1
	}

	const uMaxDigits10 = 19

	lhsDigits := ndigits(a.mantissa)
	lhsDigitsToAdd := uMaxDigits10 - lhsDigits
	lhs := uabs(a.mantissa) * uint64(ipow10(int8(lhsDigitsToAdd)))
	rhs := uabs(o.mantissa)

	lhsDec := int(a.decimals) + lhsDigitsToAdd
	lhsDigits += lhsDigitsToAdd

	var totalIntPart uint64
	nbDecimals := lhsDec - int(o.decimals)
	var totalPartNbDigits int

	for {
		totalIntPart += lhs / rhs
		totalPartNbDigits = ndigitsU(totalIntPart)
		lhs %= rhs
		if lhs == 0 {
			break
		}
		nbDigitsToAdd := uMaxDigits10 - max(totalPartNbDigits, ndigitsU(lhs))
		if nbDigitsToAdd <= 0 {
			break
		}
		mult := uint64(ipow10(int8(nbDigitsToAdd)))
		totalIntPart *= mult
		lhs *= mult
		nbDecimals += nbDigitsToAdd
	}

	if nbDecimals < 0 {
		return Amount{}, coinerr.New(coinerr.Overflow, "overflow during division")
	}

	nbDigitsTruncate := totalPartNbDigits - maxDigits10
	if nbDigitsTruncate > 0 {
		if nbDecimals < nbDigitsTruncate {
			return Amount{}, coinerr.New(coinerr.Overflow, "overflow during division")
		}
		totalIntPart /= uint64(ipow10(int8(nbDigitsTruncate)))
		nbDecimals -= nbDigitsTruncate
	}

	return Amount{mantissa: int64(totalIntPart) * negMult, decimals: int8(nbDecimals), cur: resCur}.normalize(), nil
}

func uabs(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func ndigitsU(v uint64) int {
	if v == 0 {
		return 1
	}
	n := 0
	for v > 0 {
		n++
		v /= 10
	}
	return n
}

// Round rounds a to the nearest multiple of step (which must be strictly
// positive and share a's currency) according to roundType.
func (a Amount) Round(step Amount, roundType RoundType) (Amount, error) {
	if step.mantissa <= 0 {
		return Amount{}, coinerr.New(coinerr.InvalidArgument, "round step must be strictly positive")
	}
	lhs, rhs, resDec := safeConvertSameDecimals(a.mantissa, step.mantissa, a.decimals, step.decimals)
	epsilon := lhs % rhs
	res := lhs - epsilon
	if epsilon != 0 {
		if lhs < 0 {
			if (roundType == RoundDown || (roundType == RoundNearest && -epsilon >= rhs/2)) && res >= minInt64+rhs {
				res -= rhs
			}
		} else {
			if (roundType == RoundUp || (roundType == RoundNearest && epsilon >= rhs/2)) && res <= maxInt64-rhs {
				res += rhs
			}
		}
	}
	return Amount{mantissa: res, decimals: resDec, cur: a.cur}.normalize(), nil
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)
