package excel

// rawTable is a header row plus trimmed string cells, before kind inference
type rawTable struct {
	Headers []string
	Rows    [][]string
}
