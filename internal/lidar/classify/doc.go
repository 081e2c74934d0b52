// Package classify labels stored points as ground or canopy top.
//
// Both classifiers are cell-local: each grid cell is classified from its
// own records and the enclosing 10m cell's minimum elevation, never from
// neighbouring cells. Cells are independent units of work, run through
// RunCells and concatenated in key order. Stored records are never
// modified; classifiers emit relabelled copies.
package classify
