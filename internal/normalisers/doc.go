// Package normalisers provides the content loaders that turn files in the
// data directory into plain-text documents. Each loader handles a set of
// file extensions and is registered with the Registry at startup.
package normalisers
