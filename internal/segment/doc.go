// Package segment splits raw lesson text into sentences and pairs foreign
// sentences with their translations.
//
// Split applies language-aware boundary rules (terminator classes,
// abbreviations, lowercase continuations). AlignParallel segments two texts
// line by line and balances the two sides so every line yields the same
// number of sentences on both. MapTranslations is the cheaper proportional
// mapping used when the texts are not line-parallel.
package segment
