// Package project serializes an edit plan into the editor's JSON project
// document: a microsecond-denominated timeline with video, text, and audio
// tracks referencing a shared material pool. IDs derive from content, so
// serializing the same plan twice writes identical bytes.
package project
