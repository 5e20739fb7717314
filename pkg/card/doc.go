// Package card reads and validates seed records ("cards") and derives the
// deterministic generation seed the markov package conditions on.
package card
