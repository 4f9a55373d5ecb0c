// Package language describes the source and target languages of a run and
// resolves language tokens found in subtitle file names ("en", "eng",
// "english", "pt-BR") to BCP 47 tags.
package language
