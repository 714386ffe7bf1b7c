package services

import (
	"errors"
	"fmt"
	"math"

	"car-deal-finder/models"
)

// ErrValuation is returned when the undervalue percentage is undefined,
// which happens when the predicted price is zero.
var ErrValuation = errors.New("valuation undefined")

// The fair-price placeholder is listed * 6/5 (a flat 20% markup), kept as a
// ratio so the floor is exact.
const (
	fairValueNum = 6
	fairValueDen = 5
)

// Value returns the predicted fair price for listedPrice and the percentage
// by which the listing sits below it. Positive means a bargain.
func Value(listedPrice int) (predicted int, undervaluePercent float64, err error) {
	if listedPrice < 0 {
		return 0, 0, fmt.Errorf("%w: negative listed price %d", ErrValuation, listedPrice)
	}

	if listedPrice > math.MaxInt/fairValueNum*fairValueDen {
		return 0, 0, fmt.Errorf("%w: listed price %d out of range", ErrValuation, listedPrice)
	}

	// split so the multiplication cannot overflow
	predicted = listedPrice/fairValueDen*fairValueNum + listedPrice%fairValueDen*fairValueNum/fairValueDen
	if predicted == 0 {
		return 0, 0, fmt.Errorf("%w: predicted price is zero (division by zero) for listed price %d",
			ErrValuation, listedPrice)
	}

	undervaluePercent = float64(predicted-listedPrice) / float64(predicted) * 100
	return predicted, undervaluePercent, nil
}

// ApplyValuation sets the derived price fields of l from its listed price.
// On error l is left untouched.
func ApplyValuation(l *models.Listing) error {
	predicted, pct, err := Value(l.ListedPrice)
	if err != nil {
		return err
	}
	l.PredictedPrice = predicted
	l.UndervaluePercent = pct
	return nil
}
