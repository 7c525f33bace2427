// Package collide removes overlaps left after layout and composition.
//
// [Resolve] is a bounded relaxation: pairs of overlapping siblings are
// pushed apart along their axis of least overlap, pass after pass, until a
// pass moves nothing or the iteration budget runs out. It always returns;
// when the budget is exhausted the remaining overlap is accepted and
// reported as an ITERATION_CAP warning.
//
// Pair order is fixed (ids ascending) and no randomness is involved, so
// the same input always settles the same way.
package collide
