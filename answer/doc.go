// Package answer turns retrieved chunks into a grounded answer.
//
// Generator compresses the retrieved contexts, asks the model for an answer
// using only that context, and strips the prompt framing and placeholder
// citations models tend to echo back. Pipeline is the simple retrieval path:
// hybrid retrieval followed by Generator.Answer.
package answer
