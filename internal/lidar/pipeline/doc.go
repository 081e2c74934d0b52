// Package pipeline orchestrates a classifier run: loading input files into
// the point store, sealing it, running the classifiers and publishing
// their outputs.
//
// This package is the composition root: it imports the layer packages
// (las, pointstore, classify, output) and the storage backends, but none
// of those packages import pipeline/.
package pipeline
