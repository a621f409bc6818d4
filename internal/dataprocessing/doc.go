// Package dataprocessing holds the campaign-name cleaning rules and the
// per-file processing step built on them.
//
// # Architecture
//
// The package is organized into four parts:
//
// 1. Normalizer: strips leading numeric and slash prefixes from a single value
// 2. Column matching: picks the campaign column from a header row
// 3. Parser: reads BOM-prefixed UTF-8 CSV into a domain.Dataset
// 4. Processor: parse, select, normalize and serialize one file
//
// # Usage
//
//	p := dataprocessing.NewProcessor(dataprocessing.ContainsMarker(dataprocessing.CampaignMarker), logger)
//	res, err := p.Process(ctx, file, "report.csv")
//	if err != nil {
//	    var perr *dataprocessing.ProcessError
//	    if errors.As(err, &perr) {
//	        log.Println(perr.Kind, perr.Reason())
//	    }
//	}
//	// res.OutputName == "cleaned_report.csv", res.Data starts with a UTF-8 BOM
//
// # Data Flow
//
//	CSV bytes → ParseDataset → FindColumn → Clean → exporter.EncodeDataset → cleaned bytes
//
// # Error Handling
//
// Every failure returned by Process is a *ProcessError classified as one of
// parse_error, column_not_found or unexpected_error, and matches the
// corresponding sentinel with errors.Is. A failed file never yields output.
//
// Nothing in this package holds shared mutable state; a Processor may be used
// from many goroutines at once.
package dataprocessing
