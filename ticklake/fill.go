package ticklake

import (
	"iter"
	"strconv"
	"time"
)

// -----------------------------------------------------------------------------
// Fillers
// -----------------------------------------------------------------------------

// Filler renders the placeholders of one axis for a single combination:
// one calendar day, one symbol, or one futures contract. Asking a filler
// for a placeholder outside its axis is a PlaceholderError.
type Filler interface {
	// Axis returns the axis the filler owns.
	Axis() Axis

	// FillValues renders the requested placeholders.
	FillValues(phs []Placeholder) (map[Placeholder]string, error)
}

// DateFiller renders date-axis placeholders for one calendar day.
type DateFiller struct {
	Day time.Time
}

func (f DateFiller) Axis() Axis { return AxisDate }

// FillValues maps yyyymmdd to the full date and yyyy to the four-digit
// year.
func (f DateFiller) FillValues(phs []Placeholder) (map[Placeholder]string, error) {
	fills := make(map[Placeholder]string, len(phs))
	for _, ph := range phs {
		switch ph {
		case PlaceholderDate:
			fills[ph] = f.Day.Format(dayLayout)
		case PlaceholderYear:
			fills[ph] = strconv.Itoa(f.Day.Year())
		default:
			return nil, &PlaceholderError{Placeholder: ph, Axis: AxisDate}
		}
	}
	return fills, nil
}

// SymbolFiller renders symbol-axis placeholders for one ticker symbol.
type SymbolFiller struct {
	Symbol string
}

func (f SymbolFiller) Axis() Axis { return AxisSymbol }

// FillValues maps sss to the full symbol and s to its first character.
func (f SymbolFiller) FillValues(phs []Placeholder) (map[Placeholder]string, error) {
	fills := make(map[Placeholder]string, len(phs))
	for _, ph := range phs {
		switch ph {
		case PlaceholderSymbol:
			fills[ph] = f.Symbol
		case PlaceholderSymbolStart:
			fills[ph] = f.Symbol[:1]
		default:
			return nil, &PlaceholderError{Placeholder: ph, Axis: AxisSymbol}
		}
	}
	return fills, nil
}

// FuturesFiller renders futures-axis placeholders for one contract. Both
// the trading code and the bare product come from the same contract, so a
// template using ss and ssmy together stays consistent.
type FuturesFiller struct {
	Contract FuturesContract
}

func (f FuturesFiller) Axis() Axis { return AxisFutures }

// FillValues maps ssmy to the trading code and ss to the bare product.
func (f FuturesFiller) FillValues(phs []Placeholder) (map[Placeholder]string, error) {
	fills := make(map[Placeholder]string, len(phs))
	for _, ph := range phs {
		switch ph {
		case PlaceholderTradingCode:
			fills[ph] = f.Contract.Code()
		case PlaceholderProduct:
			fills[ph] = f.Contract.Product
		default:
			return nil, &PlaceholderError{Placeholder: ph, Axis: AxisFutures}
		}
	}
	return fills, nil
}

// -----------------------------------------------------------------------------
// Axis value generators
// -----------------------------------------------------------------------------

// axisFills enumerates the fillers one axis contributes for a selection:
// one per calendar day for the date axis, one per symbol in caller order
// for the symbol axis, and one per symbol and expiration year-month for
// the futures axis.
//
// The futures axis requires an expiration range; a selection without one
// cannot drive a futures template and is rejected with a RangeError
// before any key is produced.
func axisFills(a Axis, sel Selection) (iter.Seq[Filler], error) {
	switch a {
	case AxisDate:
		return func(yield func(Filler) bool) {
			for d := range sel.Dates.Days() {
				if !yield(DateFiller{Day: d}) {
					return
				}
			}
		}, nil

	case AxisSymbol:
		return func(yield func(Filler) bool) {
			for _, sym := range sel.Symbols {
				if !yield(SymbolFiller{Symbol: sym}) {
					return
				}
			}
		}, nil

	case AxisFutures:
		if sel.Expiration == nil {
			return nil, &RangeError{Msg: "template requires a futures expiration range, none given"}
		}
		exp := *sel.Expiration
		return func(yield func(Filler) bool) {
			for _, sym := range sel.Symbols {
				for m := range exp.Months() {
					contract := FuturesContract{Product: sym, Month: m.Month(), Year: m.Year()}
					if !yield(FuturesFiller{Contract: contract}) {
						return
					}
				}
			}
		}, nil

	default:
		return nil, &PlaceholderError{Axis: a}
	}
}
