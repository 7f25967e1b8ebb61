// Package quote renders and adjusts prices: the "<shop> price is <value>"
// line format, currency conversion, discount codes, and the simulated
// remote exchange and discount services used by the combine and chain
// flows. Money arithmetic goes through shopspring/decimal and is rounded to
// cents.
package quote
