// Package router decides whether a question takes the simple retrieval path
// or goes through multi-hop decomposition.
//
// Classification is lexical and costs nothing: question marks, comparison
// and synthesis indicator words, and query length. The thresholds and the
// indicator set are tunable.
package router
