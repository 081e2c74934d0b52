// Package las reads and writes ASPRS LAS point-cloud files.
//
// Only what the classifier needs is decoded: the public header block and
// point data formats 0-5, which share the legacy 20-byte core record.
// Writers never build a header from scratch; they clone the header and
// VLR block of a reference file and patch the counts and bounds.
package las
