// Package exporter serializes cleaned datasets as CSV.
//
// Output always begins with a UTF-8 byte order mark so spreadsheet tools pick
// the right encoding, the header row comes first and no index column is added.
// Missing cells are written as empty fields.
//
// Example usage:
//
//	data, err := exporter.EncodeDataset(ds)
//	if err != nil {
//	    return err
//	}
//	// data[:3] == exporter.BOM
package exporter
