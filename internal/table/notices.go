package table

// Notices reports the non-fatal irregularities a stage recovered from, plus
// flags a stage raises for downstream consumers. Stages return Notices next
// to the table so nothing has to be smuggled through shared state.
type Notices struct {
	SourceFile string `json:"sourceFile,omitempty"`

	RowsLoaded           int `json:"rowsLoaded"`
	RaggedRows           int `json:"raggedRows"`
	DecodingBytesDropped int `json:"decodingBytesDropped"`

	ZeroDateRows      int `json:"zeroDateRows"`
	IncompleteRows    int `json:"incompleteRows"`
	AttendeeFallbacks int `json:"attendeeFallbacks"`
	CellsFilled       int `json:"cellsFilled"`

	InvalidDates int  `json:"invalidDates"`
	Preprocessed bool `json:"preprocessed"`
}

// Merge folds the counters of o into n. Flags are OR-ed and the source
// file is kept when o has none.
func (n *Notices) Merge(o Notices) {
	if o.SourceFile != "" {
		n.SourceFile = o.SourceFile
	}
	n.RowsLoaded += o.RowsLoaded
	n.RaggedRows += o.RaggedRows
	n.DecodingBytesDropped += o.DecodingBytesDropped
	n.ZeroDateRows += o.ZeroDateRows
	n.IncompleteRows += o.IncompleteRows
	n.AttendeeFallbacks += o.AttendeeFallbacks
	n.CellsFilled += o.CellsFilled
	n.InvalidDates += o.InvalidDates
	n.Preprocessed = n.Preprocessed || o.Preprocessed
}

// RowsDropped is the total number of rows removed by filtering.
func (n Notices) RowsDropped() int {
	return n.ZeroDateRows + n.IncompleteRows
}
