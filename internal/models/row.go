package models

// RawRow is one input row: the shared header plus this row's values, with
// source column order and the original row position preserved.
type RawRow struct {
	Index  int
	Header []string
	Values []string
}

// Get returns the value of the named column and whether the column exists in
// the header. A column present in the header but absent from a short row
// resolves to the empty string.
func (r RawRow) Get(column string) (string, bool) {
	for i, h := range r.Header {
		if h == column {
			if i < len(r.Values) {
				return r.Values[i], true
			}
			return "", true
		}
	}
	return "", false
}

// Snapshot returns a verbatim field-for-field copy of the row for provenance.
func (r RawRow) Snapshot() map[string]string {
	snap := make(map[string]string, len(r.Header))
	for i, h := range r.Header {
		if i < len(r.Values) {
			snap[h] = r.Values[i]
		} else {
			snap[h] = ""
		}
	}
	return snap
}
