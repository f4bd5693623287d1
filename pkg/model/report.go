package model

// IndexReport summarizes an index build. Err joins every document and chunk
// level failure; the index is usable even when Err is non-nil.
type IndexReport struct {
	Documents int
	Chunks    int
	Failed    int
	Err       error
}
