package contracts

import "errors"

// ErrInsufficientData marks an input that is too thin to compute on.
// Stages translate it into StatusInsufficientData and empty products.
var ErrInsufficientData = errors.New("insufficient data")

// ErrDuplicatePrice is returned when a panel holds two rows for one (instrument, date)
var ErrDuplicatePrice = errors.New("duplicate price point")

// MinInvestable is the smallest universe the scorer will rank
const MinInvestable = 2
