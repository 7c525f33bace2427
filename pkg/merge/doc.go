// Package merge folds a stream of partial diagram records into a live
// scene.
//
// A [Run] carries everything one stream needs between batches: its token
// and [ident.Namespacer], the ids it has produced so far, its group
// records and parent hints, and where on the canvas its content lives. A
// [Controller] is stateless across runs; each [Controller.Apply] call
// takes the previous scene, the run and one [Batch], and returns the next
// scene plus a [Report].
//
// A batch either lays the run out in full (select, layout, compose and
// collision resolution, with foreign content pinned) or, when throttled,
// parks new nodes on placeholder cells below the run until the next full
// pass. Records repeat across batches and merge by id, so feeding the
// parser's cumulative output after every chunk never duplicates content.
//
// A refine run names an existing anchor node. Records that mention the
// anchor by its raw id resolve to it, the run is laid out around it and the
// anchor itself never moves.
package merge
