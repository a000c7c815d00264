package gridexport

// Hooks are optional callbacks invoked synchronously at fixed points of an
// export, in this order: OnWriterCreate (the writer id is validated before
// any row is fetched), OnBufferCreate, OnSheetCreate, the per-cell hooks
// while rows are rendered, OnSheetComplete, and OnFileGenerated once the
// output bytes exist. Nil members are skipped.
type Hooks struct {
	OnWriterCreate func(Writer)
	OnBufferCreate func(*Buffer)
	// OnSheetCreate fires after the sheet name is set and before any row.
	OnSheetCreate func(*Buffer)
	// Cell hooks receive the cell before it is committed and may rewrite
	// value, type or style in place. The int arguments are the column
	// position and, for body cells, the data row index first.
	OnHeaderCell func(*Cell, Column, int)
	OnBodyCell   func(*Cell, Column, int, int)
	OnFooterCell func(*Cell, Column, int)

	OnSheetComplete func(*Buffer)

	// OnFileGenerated runs after the writer produced the payload and before
	// delivery. Returning false vetoes the export: nothing is streamed or
	// saved and the result is marked vetoed.
	OnFileGenerated func(filename string, data []byte) bool
}
