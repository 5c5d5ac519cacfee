package ticklake

import (
	"fmt"
	"strings"
	"time"
)

// monthLetters maps expiration months to the twelve-letter futures
// convention, January through December.
const monthLetters = "FGHJKMNQUVXZ"

// MonthLetter returns the futures month code for an expiration month.
func MonthLetter(m time.Month) byte {
	return monthLetters[int(m)-1]
}

// MonthFromLetter returns the expiration month for a futures month code.
func MonthFromLetter(c byte) (time.Month, error) {
	i := strings.IndexByte(monthLetters, c)
	if i < 0 {
		return 0, fmt.Errorf("ticklake: %q is not a futures month code", string(c))
	}
	return time.Month(i + 1), nil
}

// FuturesContract identifies a futures contract by product and expiration.
// Its trading code is computed on demand and never stored.
type FuturesContract struct {
	Product string
	Month   time.Month
	Year    int
}

// Code renders the short trading code: product code, expiration month
// letter, and the final digit of the expiration year (e.g. ESZ3 for the
// December 2023 E-mini).
func (c FuturesContract) Code() string {
	return fmt.Sprintf("%s%c%d", c.Product, MonthLetter(c.Month), c.Year%10)
}

// ParseTradingCode splits a trading code into its product, expiration
// month, and year digit. The full expiration year is not recoverable from
// the code alone; the caller supplies the decade.
func ParseTradingCode(code string) (product string, month time.Month, yearDigit int, err error) {
	if len(code) < 3 {
		return "", 0, 0, fmt.Errorf("ticklake: %q is too short for a trading code", code)
	}
	d := code[len(code)-1]
	if d < '0' || d > '9' {
		return "", 0, 0, fmt.Errorf("ticklake: trading code %q does not end in a year digit", code)
	}
	month, err = MonthFromLetter(code[len(code)-2])
	if err != nil {
		return "", 0, 0, fmt.Errorf("ticklake: trading code %q: %w", code, err)
	}
	return code[:len(code)-2], month, int(d - '0'), nil
}
