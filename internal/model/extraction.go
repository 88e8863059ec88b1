package model

// Diagnostic is a non-fatal problem recorded against one file. A ParseError
// on one file never aborts the run (spec §7) — it degrades to a Diagnostic
// and an otherwise-empty FileExtraction.
type Diagnostic struct {
	File    string
	Line    int
	Message string
}

// FileExtraction is everything the extractor produced for one file.
type FileExtraction struct {
	File        string
	Functions   []FunctionDef
	Classes     []ClassDef
	Raises      []RaiseSite
	Catches     []CatchSite
	Calls       []CallSite
	Imports     *ImportMap
	Entrypoints []Entrypoint
	Handlers    []GlobalHandler
	Diagnostics []Diagnostic
}

// Empty returns a zero-value extraction for a file that failed to parse,
// carrying a diagnostic but contributing no facts.
func Empty(file string, diag Diagnostic) FileExtraction {
	return FileExtraction{
		File:        file,
		Imports:     NewImportMap(file),
		Diagnostics: []Diagnostic{diag},
	}
}
